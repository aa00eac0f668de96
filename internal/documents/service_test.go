package documents

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryDocumentRepo struct {
	records map[string]Record
	order   []string
}

func newMemoryDocumentRepo() *memoryDocumentRepo {
	return &memoryDocumentRepo{records: make(map[string]Record)}
}

func (r *memoryDocumentRepo) Create(ctx context.Context, rec Record) (*Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	r.records[rec.ID] = rec
	r.order = append(r.order, rec.ID)
	return &rec, nil
}

func (r *memoryDocumentRepo) Replace(ctx context.Context, rec Record) (*Record, error) {
	existing, ok := r.records[rec.ID]
	if !ok {
		return nil, ErrNotFound
	}
	rec.OwnerID = existing.OwnerID
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = time.Now()
	r.records[rec.ID] = rec
	return &rec, nil
}

func (r *memoryDocumentRepo) Get(ctx context.Context, id string) (*Record, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (r *memoryDocumentRepo) List(ctx context.Context) ([]Record, error) {
	records := make([]Record, 0, len(r.order))
	for _, id := range r.order {
		if rec, ok := r.records[id]; ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *memoryDocumentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func validData() Data {
	return Data{
		Details: Details{
			DocumentType: TypeInvoice,
			NumberPart1:  "A12",
			NumberPart2:  "03",
			NumberPart3:  "2024",
			Date:         "2024-03-05",
		},
		Client: Client{Client: "Laila"},
		Items:  []Item{{Name: "Fabric", Qty: 2, Price: 30}},
	}
}

func TestServiceSaveComposesName(t *testing.T) {
	repo := newMemoryDocumentRepo()
	svc := NewService(repo, miniTemplate)

	rec, err := svc.Save(context.Background(), "owner-1", validData())
	require.NoError(t, err)
	assert.Equal(t, "A12-03-2024 - Laila", rec.Name)
	assert.Equal(t, "owner-1", rec.OwnerID)
	assert.NotEmpty(t, rec.ID)
}

func TestServiceSaveRejectsMissingIdentity(t *testing.T) {
	repo := newMemoryDocumentRepo()
	svc := NewService(repo, miniTemplate)

	data := validData()
	data.Details.NumberPart1 = ""
	data.Details.NumberPart2 = ""
	data.Details.NumberPart3 = ""
	_, err := svc.Save(context.Background(), "owner-1", data)
	require.ErrorIs(t, err, ErrMissingIdentity)

	data = validData()
	data.Client.Client = ""
	_, err = svc.Save(context.Background(), "owner-1", data)
	require.ErrorIs(t, err, ErrMissingIdentity)
}

func TestServiceUpdateOverwrites(t *testing.T) {
	repo := newMemoryDocumentRepo()
	svc := NewService(repo, miniTemplate)

	rec, err := svc.Save(context.Background(), "owner-1", validData())
	require.NoError(t, err)

	updated := validData()
	updated.Client.Client = "Nour"
	updated.Items = []Item{{Name: "Curtain", Qty: 1, Price: 99}}

	after, err := svc.Update(context.Background(), rec.ID, updated)
	require.NoError(t, err)
	assert.Equal(t, "A12-03-2024 - Nour", after.Name)

	stored, err := svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Len(t, stored.Data.Items, 1)
	assert.Equal(t, "Curtain", stored.Data.Items[0].Name)
}

func TestServiceUpdateMissingDocument(t *testing.T) {
	repo := newMemoryDocumentRepo()
	svc := NewService(repo, miniTemplate)

	_, err := svc.Update(context.Background(), "missing", validData())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceRenderUsesTemplate(t *testing.T) {
	repo := newMemoryDocumentRepo()
	svc := NewService(repo, miniTemplate)

	rec, err := svc.Save(context.Background(), "owner-1", validData())
	require.NoError(t, err)

	markup, res := svc.Render(*rec)
	assert.Contains(t, markup, "Invoice No: A12-03-2024")
	assert.InDelta(t, 60.0, res.Subtotal, 1e-9)
}

func TestServicePreviewMatchesRender(t *testing.T) {
	svc := NewService(newMemoryDocumentRepo(), miniTemplate)

	data := validData()
	previewed, _ := svc.Preview(data)
	rendered, _ := svc.Render(Record{Data: data})
	assert.Equal(t, rendered, previewed)
}

func recordWithNumber(docType DocumentType, p2, p3, name string) Record {
	return Record{
		ID:   uuid.NewString(),
		Name: name,
		Data: Data{
			Details: Details{DocumentType: docType, NumberPart1: "X", NumberPart2: p2, NumberPart3: p3},
			Client:  Client{Client: name},
		},
	}
}

func TestCategorizeGroupsByYearAndMonth(t *testing.T) {
	records := []Record{
		recordWithNumber(TypeInvoice, "03", "2024", "march-invoice"),
		recordWithNumber(TypeInvoice, "01", "2024", "january-invoice"),
		recordWithNumber(TypeQuotation, "03", "2024", "march-quote"),
		recordWithNumber(TypeInvoice, "12", "2023", "older"),
	}

	hist := Categorize(records)
	require.Len(t, hist.Years, 2)
	assert.Equal(t, "2024", hist.Years[0].Year)
	assert.Equal(t, "2023", hist.Years[1].Year)

	require.Len(t, hist.Years[0].Invoices, 2)
	assert.Equal(t, "January", hist.Years[0].Invoices[0].Month)
	assert.Equal(t, "March", hist.Years[0].Invoices[1].Month)

	require.Len(t, hist.Years[0].Quotations, 1)
	assert.Equal(t, "March", hist.Years[0].Quotations[0].Month)

	assert.Empty(t, hist.Others)
}

func TestCategorizeOthersBucket(t *testing.T) {
	records := []Record{
		recordWithNumber(TypeInvoice, "13", "2024", "bad-month"),
		recordWithNumber(TypeInvoice, "03", "1900", "year-too-old"),
		recordWithNumber(TypeInvoice, "03", "3000", "year-too-far"),
		recordWithNumber(TypeInvoice, "03", "notayear", "bad-year"),
		recordWithNumber(TypeInvoice, "", "2024", "missing-month"),
	}

	hist := Categorize(records)
	assert.Empty(t, hist.Years)
	assert.Len(t, hist.Others, 5)
}

func TestDisplayName(t *testing.T) {
	data := validData()
	assert.Equal(t, "A12-03-2024 - Laila", DisplayName(data))
}
