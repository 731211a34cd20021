package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"mercari-scraper/models"
	"mercari-scraper/utils"
)

// CSVWriter appends page batches to a session's result file. The file is
// opened, written and closed per call, so partial results survive a crawl
// that dies mid-session. The first batch writes the header zone; the last
// batch appends the statistics zone.
type CSVWriter struct {
	dir    string
	logger *utils.Logger
}

// NewCSVWriter creates the results directory if needed and returns a
// ready-to-use CSVWriter.
func NewCSVWriter(dir string, logger *utils.Logger) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("csv: create results dir: %w", err)
	}
	return &CSVWriter{dir: dir, logger: logger}, nil
}

// Append writes one batch to the named file. On the first page the file is
// truncated and the header zone written; later pages append listing rows
// only. On the last page the statistics zone follows the batch's rows:
// the section title, then either the full statistics block or a single
// no-data row when analysis is nil. A batch with zero listings writes no
// listing rows but still honors its first/last flags.
func (w *CSVWriter) Append(filename, keyword string, batch models.PageBatch, analysis *models.PriceAnalysis) error {
	flags := os.O_CREATE | os.O_WRONLY
	if batch.IsFirstPage {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}

	path := filepath.Join(w.dir, filename)
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)

	if batch.IsFirstPage {
		headerRows := [][]string{
			{"検索キーワード", keyword},
			{"取得開始日時", time.Now().Format("2006-01-02 15:04:05")},
			{},
			{"商品名", "価格"},
		}
		for _, row := range headerRows {
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("csv: write header: %w", err)
			}
		}
	}

	for _, l := range batch.Listings {
		if err := cw.Write([]string{l.Name, l.Price}); err != nil {
			return fmt.Errorf("csv: write listing row: %w", err)
		}
	}

	if batch.IsLastPage {
		for _, row := range analysisRows(analysis) {
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("csv: write analysis row: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv: flush %q: %w", path, err)
	}

	w.logger.Debug("[csv] Page %d → %s (%d rows)", batch.Number, filename, len(batch.Listings))
	return nil
}

func analysisRows(a *models.PriceAnalysis) [][]string {
	rows := [][]string{{"=== 価格分析 ==="}}
	if a == nil {
		return append(rows, []string{"分析対象の商品がありません"})
	}
	return append(rows,
		[]string{"=== 全商品の価格情報 ==="},
		[]string{"最低金額商品", "¥" + a.Lowest.Price},
		[]string{"商品名", a.Lowest.Name},
		[]string{"最高金額商品", "¥" + a.Highest.Price},
		[]string{"商品名", a.Highest.Name},
		[]string{"平均価格", "¥" + groupDigits(int(a.Average))},
		[]string{"中央値", "¥" + groupDigits(int(a.Median))},
		[]string{"取得商品数", fmt.Sprintf("%d件", a.Total)},
	)
}

// groupDigits renders n with comma thousands separators.
func groupDigits(n int) string {
	if n < 0 {
		return "-" + groupDigits(-n)
	}
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
