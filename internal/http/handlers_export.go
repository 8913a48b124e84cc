package http

import (
	"net/http"

	"spendlog/internal/aggregate"
	"spendlog/internal/export"
	"spendlog/internal/log"
)

// handleExportTransactions downloads the filtered view in the ledger file
// format; without parameters that is the whole ledger.
func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	view, _, _, err := s.filteredView(r)
	if err != nil {
		s.writeError(w, r, log.OpFilter, err)
		return
	}
	data, err := export.ToTable(view)
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	NewResponse().CSV("transactions.csv", data).Write(w)
}

func (s *Server) handleExportBreakdown(w http.ResponseWriter, r *http.Request) {
	view, _, _, err := s.filteredView(r)
	if err != nil {
		s.writeError(w, r, log.OpFilter, err)
		return
	}
	kind, err := ParseGroup(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpParse, err)
		return
	}
	data, err := export.ToCategorySummaryTable(groupBy(view, kind))
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	NewResponse().CSV("breakdown_"+string(kind)+".csv", data).Write(w)
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	view, _, _, err := s.filteredView(r)
	if err != nil {
		s.writeError(w, r, log.OpFilter, err)
		return
	}
	data, err := export.ToCategoryStatsTable(aggregate.CategoryStatistics(view))
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	NewResponse().CSV("expense_report_summary.csv", data).Write(w)
}
