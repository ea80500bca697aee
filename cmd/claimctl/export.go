package main

import (
	"fmt"
	"strings"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/models"

	"github.com/xuri/excelize/v2"
)

const historySheet = "Claims"

var historyColumns = []string{
	"Claim ID", "Submitted", "Risk Score", "Risk Level", "Recommendation",
	"Patient", "Policy Number", "Estimated Amount", "Fraud Detected",
	"Fraud Severity", "Indicators", "Missing Documents",
}

// writeHistoryXLSX exports one page of history as a spreadsheet.
func writeHistoryXLSX(path string, rows []models.StoredClaim) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return err
	}
	header := make([]any, len(historyColumns))
	for i, c := range historyColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(historySheet, "A1", &header); err != nil {
		return err
	}

	for i, c := range rows {
		var patient, policy, amount string
		if c.ClaimSummary != nil {
			patient, policy, amount = c.ClaimSummary.PatientName, c.ClaimSummary.PolicyNumber, c.ClaimSummary.EstimatedAmount
		}
		row := []any{
			c.ClaimID,
			submittedAt(c.Timestamp).Format("2006-01-02 15:04"),
			c.RiskScore,
			string(c.RiskLevel),
			string(c.Recommendation),
			patient,
			policy,
			amount,
			c.FraudIndicators.Detected,
			c.FraudIndicators.Severity,
			strings.Join(c.FraudIndicators.Indicators, "; "),
			strings.Join(c.DocumentCompleteness.MissingDocuments, "; "),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetPanes(historySheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
