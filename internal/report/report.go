// Package report renders screening results for the export sinks: CSV
// verdict tables, run summaries and a plain-text monitoring report.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Risk levels for the executive summary, keyed off the suspicious share
// of the batch.
const (
	RiskHigh     = "High Risk"
	RiskElevated = "Elevated"
	RiskLow      = "Low Risk"
)

// FlaggedTxn pairs a transaction with its verdict for display.
type FlaggedTxn struct {
	Transaction domain.Transaction `json:"transaction"`
	Verdict     domain.Verdict     `json:"verdict"`
}

// Summary is the aggregate view of one screening run.
type Summary struct {
	Total         int            `json:"total"`
	Suspicious    int            `json:"suspicious"`
	SuspiciousPct float64        `json:"suspiciousPct"`
	RuleFlagged   int            `json:"ruleFlagged"`
	MLFlagged     int            `json:"mlFlagged"`
	RiskLevel     string         `json:"riskLevel"`
	ByLocation    map[string]int `json:"byLocation"` // suspicious count per location
	TopSuspicious []FlaggedTxn   `json:"topSuspicious"`
}

// Summarize aggregates the verdict table. TopSuspicious holds the topN
// suspicious transactions by amount, descending.
func Summarize(txns []domain.Transaction, verdicts map[int64]domain.Verdict, topN int) Summary {
	s := Summary{
		Total:      len(txns),
		ByLocation: make(map[string]int),
	}

	var flagged []FlaggedTxn
	for _, tx := range txns {
		v, ok := verdicts[tx.ID]
		if !ok {
			continue
		}
		if v.RuleFlagged {
			s.RuleFlagged++
		}
		if v.MLFlagged {
			s.MLFlagged++
		}
		if v.Suspicious {
			s.Suspicious++
			s.ByLocation[tx.Location]++
			flagged = append(flagged, FlaggedTxn{Transaction: tx, Verdict: v})
		}
	}

	if s.Total > 0 {
		s.SuspiciousPct = 100 * float64(s.Suspicious) / float64(s.Total)
	}
	s.RiskLevel = riskLevel(s.SuspiciousPct)

	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].Transaction.Amount != flagged[j].Transaction.Amount {
			return flagged[i].Transaction.Amount > flagged[j].Transaction.Amount
		}
		return flagged[i].Transaction.ID < flagged[j].Transaction.ID
	})
	if topN > 0 && len(flagged) > topN {
		flagged = flagged[:topN]
	}
	s.TopSuspicious = flagged

	return s
}

func riskLevel(pct float64) string {
	switch {
	case pct > 5:
		return RiskHigh
	case pct > 2:
		return RiskElevated
	default:
		return RiskLow
	}
}

// WriteCSV writes the verdict table as CSV, ID-ordered. With
// suspiciousOnly set, clean transactions are omitted.
func WriteCSV(w io.Writer, txns []domain.Transaction, verdicts map[int64]domain.Verdict, suspiciousOnly bool) error {
	rows := make([]domain.Transaction, len(txns))
	copy(rows, txns)
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	cw := csv.NewWriter(w)
	header := []string{"transaction_id", "sender_id", "receiver_id", "amount", "timestamp", "location", "rule_flagged", "ml_flagged", "suspicious", "reasons"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, tx := range rows {
		v, ok := verdicts[tx.ID]
		if !ok {
			return fmt.Errorf("%w: no verdict for transaction %d", domain.ErrMissingVerdictInput, tx.ID)
		}
		if suspiciousOnly && !v.Suspicious {
			continue
		}
		record := []string{
			strconv.FormatInt(tx.ID, 10),
			strconv.FormatInt(tx.SenderID, 10),
			strconv.FormatInt(tx.ReceiverID, 10),
			strconv.FormatFloat(tx.Amount, 'f', 2, 64),
			tx.Timestamp.UTC().Format(time.RFC3339),
			tx.Location,
			strconv.FormatBool(v.RuleFlagged),
			strconv.FormatBool(v.MLFlagged),
			strconv.FormatBool(v.Suspicious),
			strings.Join(v.Reasons, ";"),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row for transaction %d: %w", tx.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteText renders the monitoring report: executive summary, key
// findings and the top suspicious transactions.
func WriteText(w io.Writer, s Summary) error {
	var b strings.Builder

	b.WriteString("ANTI-MONEY LAUNDERING (AML) MONITORING REPORT\n")
	b.WriteString("=============================================\n\n")

	b.WriteString("Executive Summary\n")
	fmt.Fprintf(&b, "  Total Transactions:      %d\n", s.Total)
	fmt.Fprintf(&b, "  Suspicious Transactions: %d (%.2f%%)\n", s.Suspicious, s.SuspiciousPct)
	fmt.Fprintf(&b, "  Rule Flagged:            %d\n", s.RuleFlagged)
	fmt.Fprintf(&b, "  ML Flagged:              %d\n", s.MLFlagged)
	fmt.Fprintf(&b, "  Overall Risk Level:      %s\n\n", s.RiskLevel)

	b.WriteString("Key Findings\n")
	b.WriteString("  - Structuring detected (small repeated transfers)\n")
	b.WriteString("  - High-risk geography transactions\n")
	b.WriteString("  - Transaction spikes above normal behavior\n")
	b.WriteString("  - ML anomalies identified unusual hidden patterns\n\n")

	if len(s.ByLocation) > 0 {
		b.WriteString("Suspicious by Location\n")
		locations := make([]string, 0, len(s.ByLocation))
		for loc := range s.ByLocation {
			locations = append(locations, loc)
		}
		sort.Strings(locations)
		for _, loc := range locations {
			fmt.Fprintf(&b, "  %-12s %d\n", loc, s.ByLocation[loc])
		}
		b.WriteString("\n")
	}

	if len(s.TopSuspicious) > 0 {
		fmt.Fprintf(&b, "Top %d Suspicious Transactions\n", len(s.TopSuspicious))
		for _, f := range s.TopSuspicious {
			fmt.Fprintf(&b, "  TxnID: %d | Sender: %d | Receiver: %d | Amount: %.2f | Location: %s | Reasons: %s\n",
				f.Transaction.ID,
				f.Transaction.SenderID,
				f.Transaction.ReceiverID,
				f.Transaction.Amount,
				f.Transaction.Location,
				reasonText(f.Verdict),
			)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func reasonText(v domain.Verdict) string {
	reasons := append([]string{}, v.Reasons...)
	if v.MLFlagged {
		reasons = append(reasons, "ml-anomaly")
	}
	if len(reasons) == 0 {
		return "-"
	}
	return strings.Join(reasons, ";")
}
