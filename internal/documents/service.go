package documents

import (
	"context"
	"errors"
	"sort"
	"strconv"
)

// ErrMissingIdentity is returned when a document is saved without the
// minimum identifying fields.
var ErrMissingIdentity = errors.New("documents: document number and client name required")

// RepositoryPort defines data access methods for documents.
type RepositoryPort interface {
	Create(ctx context.Context, rec Record) (*Record, error)
	Replace(ctx context.Context, rec Record) (*Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id string) error
}

// Service handles document business logic: saving, retrieval, totals
// calculation and markup rendering against the fixed template.
type Service struct {
	repo     RepositoryPort
	template string
}

// NewService builds a Service instance around a repository and the
// document markup template.
func NewService(repo RepositoryPort, template string) *Service {
	return &Service{repo: repo, template: template}
}

// Save validates and persists a new document. The stored display name
// is composed from the document number and client name.
func (s *Service) Save(ctx context.Context, ownerID string, data Data) (*Record, error) {
	if data.Details.Number() == "" || data.Client.Client == "" {
		return nil, ErrMissingIdentity
	}
	return s.repo.Create(ctx, Record{
		Name:    DisplayName(data),
		OwnerID: ownerID,
		Data:    data,
	})
}

// Update overwrites an existing document in full and recomposes its
// display name.
func (s *Service) Update(ctx context.Context, id string, data Data) (*Record, error) {
	if data.Details.Number() == "" || data.Client.Client == "" {
		return nil, ErrMissingIdentity
	}
	return s.repo.Replace(ctx, Record{
		ID:   id,
		Name: DisplayName(data),
		Data: data,
	})
}

// Get returns a single document.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.repo.Get(ctx, id)
}

// List returns all documents.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.repo.List(ctx)
}

// Delete removes a document permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Render computes the totals for a record and substitutes them into the
// document template.
func (s *Service) Render(rec Record) (string, Result) {
	res := Compute(rec.Data.Items, rec.Data.Totals)
	return RenderHTML(s.template, rec, res), res
}

// Preview renders unsaved form data the same way a stored record is
// rendered, for the live preview pane.
func (s *Service) Preview(data Data) (string, Result) {
	return s.Render(Record{Data: data})
}

// monthNames indexes month display names by 1-based month number.
var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthGroup collects the documents of one month.
type MonthGroup struct {
	Month   string
	Records []Record
}

// YearGroup splits one year's documents by type, month by month.
type YearGroup struct {
	Year       string
	Invoices   []MonthGroup
	Quotations []MonthGroup
}

// History is the categorised document listing: recognisable documents
// grouped by year and month, the rest under Others.
type History struct {
	Years  []YearGroup
	Others []Record
}

// Categorize groups records by the year and month encoded in the second
// and third number parts. Records whose parts do not form a plausible
// year/month pair land in Others. Years are ordered descending, months
// January through December.
func Categorize(records []Record) History {
	type bucket struct {
		invoices   map[int][]Record
		quotations map[int][]Record
	}
	byYear := make(map[string]*bucket)

	var hist History
	for _, rec := range records {
		year, err := strconv.Atoi(rec.Data.Details.NumberPart3)
		if err != nil || year <= 1900 || year >= 3000 {
			hist.Others = append(hist.Others, rec)
			continue
		}
		month, err := strconv.Atoi(rec.Data.Details.NumberPart2)
		if err != nil || month < 1 || month > 12 {
			hist.Others = append(hist.Others, rec)
			continue
		}

		key := rec.Data.Details.NumberPart3
		b, ok := byYear[key]
		if !ok {
			b = &bucket{invoices: make(map[int][]Record), quotations: make(map[int][]Record)}
			byYear[key] = b
		}
		if rec.Data.Details.Type() == TypeInvoice {
			b.invoices[month] = append(b.invoices[month], rec)
		} else {
			b.quotations[month] = append(b.quotations[month], rec)
		}
	}

	years := make([]string, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Slice(years, func(i, j int) bool {
		a, _ := strconv.Atoi(years[i])
		b, _ := strconv.Atoi(years[j])
		return a > b
	})

	for _, y := range years {
		b := byYear[y]
		hist.Years = append(hist.Years, YearGroup{
			Year:       y,
			Invoices:   monthGroups(b.invoices),
			Quotations: monthGroups(b.quotations),
		})
	}
	return hist
}

func monthGroups(byMonth map[int][]Record) []MonthGroup {
	var groups []MonthGroup
	for m := 1; m <= 12; m++ {
		if recs := byMonth[m]; len(recs) > 0 {
			groups = append(groups, MonthGroup{Month: monthNames[m-1], Records: recs})
		}
	}
	return groups
}
