package http

import (
	"net/http"
	"strconv"

	"spendlog/internal/aggregate"
	"spendlog/internal/cache"
	"spendlog/internal/core"
	"spendlog/internal/filter"
	"spendlog/internal/log"
)

type transactionJSON struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		Date:        t.Date.String(),
		Amount:      core.FormatAmount(t.Amount),
		Category:    t.Category,
		Description: t.Description,
	}
}

type listResponse struct {
	Transactions []transactionJSON `json:"transactions"`
	Count        int               `json:"count"`
	Version      int64             `json:"version"`
}

// filteredView applies the request's filter to the current snapshot.
func (s *Server) filteredView(r *http.Request) (core.View, filter.Spec, int64, error) {
	spec, err := ParseFilterSpec(r.URL.Query())
	if err != nil {
		return nil, filter.Spec{}, 0, err
	}
	l, version := s.ledger.Snapshot()
	return filter.Apply(l.View(), spec), spec, version, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	view, _, version, err := s.filteredView(r)
	if err != nil {
		s.writeError(w, r, log.OpFilter, err)
		return
	}
	sorted, desc, err := ParseSort(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpFilter, err)
		return
	}
	if sorted {
		view = filter.SortByDate(view, desc)
	}

	resp := listResponse{
		Transactions: make([]transactionJSON, len(view)),
		Count:        len(view),
		Version:      version,
	}
	for i, t := range view {
		resp.Transactions[i] = toTransactionJSON(t)
	}
	NewResponse().JSON(resp).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, err := ParseTransactionInput(r)
	if err != nil {
		s.writeError(w, r, log.OpParse, err)
		return
	}

	tx, err := s.ledger.Append(r.Context(), in)
	if err != nil {
		s.writeError(w, r, log.OpAppend, err)
		return
	}

	l, version := s.ledger.Snapshot()
	s.logs.LogTransactionAppended(r.Context(), tx.Date.String(), core.FormatAmount(tx.Amount), tx.Category, version, l.Len())
	NewResponse().Status(http.StatusCreated).JSON(toTransactionJSON(tx)).Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Reset(r.Context()); err != nil {
		s.writeError(w, r, log.OpReset, err)
		return
	}
	_, version := s.ledger.Snapshot()
	s.logger.InfoContext(r.Context(), "Ledger reset via API", log.FieldVersion, version)
	NewResponse().JSON(listResponse{Transactions: []transactionJSON{}, Version: version}).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	view, _, _, err := s.filteredView(r)
	if err != nil {
		s.writeError(w, r, log.OpFilter, err)
		return
	}
	NewResponse().JSON(aggregate.Summarize(view)).Write(w)
}

func groupBy(view core.View, kind core.GroupKind) core.Breakdown {
	if kind == core.GroupByMonth {
		return aggregate.GroupByMonth(view)
	}
	return aggregate.GroupByCategory(view)
}

func (s *Server) handleBreakdown(kind core.GroupKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, _, _, err := s.filteredView(r)
		if err != nil {
			s.writeError(w, r, log.OpFilter, err)
			return
		}
		NewResponse().JSON(groupBy(view, kind)).Write(w)
	}
}

type histogramResponse struct {
	Bins []core.HistogramBin `json:"bins"`
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	view, _, _, err := s.filteredView(r)
	if err != nil {
		s.writeError(w, r, log.OpFilter, err)
		return
	}
	bins, err := ParseBins(r.URL.Query(), s.bins)
	if err != nil {
		s.writeError(w, r, log.OpParse, err)
		return
	}
	NewResponse().JSON(histogramResponse{Bins: aggregate.Histogram(view, bins)}).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, spec, version, err := s.filteredView(r)
	if err != nil {
		s.writeError(w, r, log.OpFilter, err)
		return
	}
	bins, err := ParseBins(r.URL.Query(), s.bins)
	if err != nil {
		s.writeError(w, r, log.OpParse, err)
		return
	}

	key := cache.Key(version, spec.Key(), strconv.Itoa(bins))
	if d, ok := s.dashboards.Get(key); ok {
		s.logger.DebugContext(r.Context(), "Dashboard cache hit", log.FieldVersion, version, log.FieldFilter, spec.Key())
		NewResponse().Header("X-Cache", "HIT").JSON(d).Write(w)
		return
	}

	d, err := aggregate.BuildDashboard(r.Context(), view, bins)
	if err != nil {
		s.writeError(w, r, log.OpFilter, err)
		return
	}
	s.dashboards.Set(key, d)
	NewResponse().Header("X-Cache", "MISS").JSON(d).Write(w)
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	view, _, _, err := s.filteredView(r)
	if err != nil {
		s.writeError(w, r, log.OpFilter, err)
		return
	}
	NewResponse().JSON(categoriesResponse{Categories: aggregate.Categories(view)}).Write(w)
}
