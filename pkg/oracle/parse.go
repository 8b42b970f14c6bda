package oracle

import (
	"bufio"
	"bytes"
	"strings"

	apperrors "github.com/kmoselund/qpermute/pkg/errors"
)

// ParseLog extracts the outlier table from a fitting log.
//
// The program prints a section opened by a line containing "outliers" and
// closed by the "worst f-stat" line; every non-blank line in between is one
// outlier, tokenized on whitespace. Both markers must be present even when
// the section is empty - a log missing either marker came from a run that
// died midway and cannot be trusted to mean "zero outliers".
func ParseLog(data []byte) (*Result, error) {
	var (
		res         Result
		reading     bool
		sawOutliers bool
		sawWorst    bool
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, "outliers") {
			reading = true
			sawOutliers = true
			continue
		}
		if strings.Contains(line, "worst f-stat") {
			res.Worst = strings.Fields(line)
			reading = false
			sawWorst = true
			continue
		}
		if reading && strings.TrimSpace(line) != "" {
			res.Outliers = append(res.Outliers, Outlier{Fields: strings.Fields(line)})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeOracleMalformed, err, "scanning oracle log")
	}

	if !sawOutliers || !sawWorst {
		return nil, apperrors.New(apperrors.ErrCodeOracleMalformed,
			"oracle log is missing the outlier section markers")
	}
	return &res, nil
}
