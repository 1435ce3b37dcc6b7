package services

import (
	"context"
	"fmt"
	"log/slog"

	"spendtrack/internal/core"
	"spendtrack/internal/export"
)

type ExportRequest struct {
	// Expenses, when present, is printed as given instead of loading the
	// caller's stored records.
	Expenses  []core.ExpenseRecord `json:"expenses,omitempty"`
	StartDate string               `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string               `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

type ExportService struct {
	store    ExpenseStore
	renderer export.Renderer
}

func NewExportService(store ExpenseStore, renderer export.Renderer) *ExportService {
	return &ExportService{store: store, renderer: renderer}
}

// Document resolves the records for req and builds the printable summary.
func (s *ExportService) Document(ctx context.Context, ownerID string, req ExportRequest) (export.Document, error) {
	records := req.Expenses
	if records == nil {
		var f core.ExpenseFilter
		var err error
		if req.StartDate != "" {
			if f.From, err = core.ParseDate(req.StartDate); err != nil {
				return export.Document{}, err
			}
		}
		if req.EndDate != "" {
			if f.To, err = core.ParseDate(req.EndDate); err != nil {
				return export.Document{}, err
			}
		}
		records, err = s.store.ListExpenses(ctx, ownerID, f)
		if err != nil {
			return export.Document{}, fmt.Errorf("load expenses: %w", err)
		}
	}
	return export.BuildDocument(records, req.StartDate, req.EndDate), nil
}

// PDF renders the summary for req.
func (s *ExportService) PDF(ctx context.Context, ownerID string, req ExportRequest) ([]byte, error) {
	doc, err := s.Document(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}
	html, err := export.RenderHTML(doc)
	if err != nil {
		return nil, err
	}
	pdf, err := s.renderer.RenderPDF(ctx, html)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Expense summary exported",
		"user_id", ownerID,
		"records", len(doc.Lines),
		"bytes", len(pdf))
	return pdf, nil
}
