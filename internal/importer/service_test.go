package importer_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashfolio/cashfolio/internal/domain"
	"github.com/cashfolio/cashfolio/internal/importer"
	"github.com/cashfolio/cashfolio/internal/store"
)

type fixture struct {
	store   *store.Memory
	service *importer.Service
	account *domain.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	family := &domain.Family{ID: uuid.New(), Name: "Smith", Currency: "USD", CreatedAt: time.Now().UTC()}
	if err := mem.CreateFamily(ctx, family); err != nil {
		t.Fatalf("CreateFamily() error: %v", err)
	}

	account := &domain.Account{
		ID:          uuid.New(),
		FamilyID:    family.ID,
		Name:        "Checking",
		Accountable: domain.AccountableDepository,
		Currency:    "USD",
		CreatedAt:   time.Now().UTC(),
	}
	if err := mem.CreateAccount(ctx, account); err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}

	return &fixture{
		store:   mem,
		service: importer.NewService(mem, nil),
		account: account,
	}
}

// readyImport creates an import loaded with raw CSV and a matching mapping.
func (f *fixture) readyImport(t *testing.T, raw string) *importer.Import {
	t.Helper()
	ctx := context.Background()

	im, err := f.service.Create(ctx, f.account.ID)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := f.service.UpdateCSV(ctx, im.ID, raw); err != nil {
		t.Fatalf("UpdateCSV() error: %v", err)
	}
	mapping := &importer.ColumnMapping{Date: "Date", Name: "Desc", Category: "Cat", Amount: "Amt"}
	if _, err := f.service.UpdateMappings(ctx, im.ID, mapping); err != nil {
		t.Fatalf("UpdateMappings() error: %v", err)
	}
	return im
}

func (f *fixture) transactions(t *testing.T) []*domain.Transaction {
	t.Helper()
	txs, err := f.store.ListTransactions(context.Background(), f.account.ID)
	if err != nil {
		t.Fatalf("ListTransactions() error: %v", err)
	}
	return txs
}

func TestCreateRequiresAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), uuid.New())
	if !errors.Is(err, importer.ErrNotFound) {
		t.Errorf("Create() error = %v, want ErrNotFound", err)
	}
}

func TestPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	im := f.readyImport(t, "Date,Desc,Cat,Amt\n2024-01-01,Coffee,Food,-4.50\n")

	if err := f.service.Publish(ctx, im.ID); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	got, err := f.service.Get(ctx, im.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Status != importer.StatusComplete {
		t.Errorf("status = %s, want complete", got.Status)
	}

	txs := f.transactions(t)
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}

	tx := txs[0]
	if !tx.Amount.Equal(decimal.RequireFromString("4.50")) {
		t.Errorf("amount = %s, want 4.50 (csv sign inverted)", tx.Amount)
	}
	if tx.Name != "Coffee" {
		t.Errorf("name = %q, want Coffee", tx.Name)
	}
	if tx.Currency != "USD" {
		t.Errorf("currency = %q, want account currency USD", tx.Currency)
	}
	if got := tx.Date.Format("2006-01-02"); got != "2024-01-01" {
		t.Errorf("date = %s, want 2024-01-01", got)
	}
	if tx.AccountID != f.account.ID {
		t.Errorf("account id = %s, want %s", tx.AccountID, f.account.ID)
	}

	category, err := f.store.FindOrCreateCategory(ctx, f.account.FamilyID, "Food")
	if err != nil {
		t.Fatalf("FindOrCreateCategory() error: %v", err)
	}
	if tx.CategoryID != category.ID {
		t.Errorf("category id = %s, want %s", tx.CategoryID, category.ID)
	}
}

func TestPublishHaltsAtFirstBadRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Row 3 carries an unparseable amount. Rows are checked at publish time,
	// not upload time, so the import loads and configures without complaint.
	raw := "Date,Desc,Cat,Amt\n" +
		"2024-01-01,One,Food,-1\n" +
		"2024-01-02,Two,Food,-2\n" +
		"2024-01-03,Three,Food,oops\n" +
		"2024-01-04,Four,Food,-4\n" +
		"2024-01-05,Five,Food,-5\n"
	im := f.readyImport(t, raw)

	if err := f.service.Publish(ctx, im.ID); err != nil {
		t.Fatalf("Publish() error: %v (row failures must not surface)", err)
	}

	got, err := f.service.Get(ctx, im.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Status != importer.StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.LastError, "row 3") {
		t.Errorf("last error = %q, want mention of row 3", got.LastError)
	}

	// Rows before the failure stay committed; rows after were never attempted.
	txs := f.transactions(t)
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	for i, want := range []string{"One", "Two"} {
		if txs[i].Name != want {
			t.Errorf("transaction %d name = %q, want %q", i, txs[i].Name, want)
		}
	}
}

func TestPublishDuplicateDeliveryIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	im := f.readyImport(t, "Date,Desc,Cat,Amt\n2024-01-01,Coffee,Food,-4.50\n")

	if err := f.service.Publish(ctx, im.ID); err != nil {
		t.Fatalf("first Publish() error: %v", err)
	}
	if err := f.service.Publish(ctx, im.ID); err != nil {
		t.Fatalf("second Publish() error: %v", err)
	}

	if txs := f.transactions(t); len(txs) != 1 {
		t.Errorf("got %d transactions after duplicate publish, want 1", len(txs))
	}
}

func TestPublishUnknownImport(t *testing.T) {
	f := newFixture(t)

	err := f.service.Publish(context.Background(), uuid.New())
	if !errors.Is(err, importer.ErrNotFound) {
		t.Errorf("Publish() error = %v, want ErrNotFound (infra errors surface for retry)", err)
	}
}

func TestUpdateCSVValidationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	im, err := f.service.Create(ctx, f.account.ID)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	_, err = f.service.UpdateCSV(ctx, im.ID, "")
	var verrs importer.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("UpdateCSV() error = %T, want ValidationErrors", err)
	}
	if msgs := verrs.On("raw_csv"); len(msgs) != 1 || msgs[0] != "can't be empty" {
		t.Errorf("On(raw_csv) = %v, want [can't be empty]", msgs)
	}

	// Nothing was persisted.
	got, err := f.service.Get(ctx, im.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Loaded() {
		t.Error("import loaded despite validation failure")
	}
}

func TestPreview(t *testing.T) {
	f := newFixture(t)

	im := f.readyImport(t, "Date,Desc,Cat,Amt\n2024-01-01,Coffee,Food,-4.50\n")
	rows, err := f.service.Preview(context.Background(), im.ID)
	if err != nil {
		t.Fatalf("Preview() error: %v", err)
	}

	want := importer.ParsedRow{Date: "2024-01-01", Name: "Coffee", Category: "Food", Amount: "-4.50"}
	if len(rows) != 1 || rows[0] != want {
		t.Errorf("Preview() = %v, want [%v]", rows, want)
	}
}

func TestSuggestedMapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	im, err := f.service.Create(ctx, f.account.ID)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := f.service.UpdateCSV(ctx, im.ID, "Posted,Merchant,Type,Value\n2024-01-01,Coffee,Food,-4.50\n"); err != nil {
		t.Fatalf("UpdateCSV() error: %v", err)
	}

	mapping, err := f.service.SuggestedMapping(ctx, im.ID)
	if err != nil {
		t.Fatalf("SuggestedMapping() error: %v", err)
	}

	want := importer.ColumnMapping{Date: "Posted", Name: "Merchant", Category: "Type", Amount: "Value"}
	if *mapping != want {
		t.Errorf("SuggestedMapping() = %+v, want %+v", *mapping, want)
	}
}

func TestDestroyKeepsCommittedTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	im := f.readyImport(t, "Date,Desc,Cat,Amt\n2024-01-01,Coffee,Food,-4.50\n")
	if err := f.service.Publish(ctx, im.ID); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	if err := f.service.Destroy(ctx, im.ID); err != nil {
		t.Fatalf("Destroy() error: %v", err)
	}
	if _, err := f.service.Get(ctx, im.ID); !errors.Is(err, importer.ErrNotFound) {
		t.Errorf("Get() after destroy error = %v, want ErrNotFound", err)
	}

	if txs := f.transactions(t); len(txs) != 1 {
		t.Errorf("got %d transactions after destroy, want 1", len(txs))
	}
}

// recordingPublisher captures enqueued import ids.
type recordingPublisher struct {
	ids []uuid.UUID
}

func (p *recordingPublisher) PublishImport(ctx context.Context, importID uuid.UUID) error {
	p.ids = append(p.ids, importID)
	return nil
}

func TestPublishLaterEnqueues(t *testing.T) {
	f := newFixture(t)
	queue := &recordingPublisher{}
	svc := importer.NewService(f.store, queue)

	im := f.readyImport(t, "Date,Desc,Cat,Amt\n2024-01-01,Coffee,Food,-4.50\n")
	if err := svc.PublishLater(context.Background(), im.ID); err != nil {
		t.Fatalf("PublishLater() error: %v", err)
	}

	if len(queue.ids) != 1 || queue.ids[0] != im.ID {
		t.Errorf("queued ids = %v, want [%s]", queue.ids, im.ID)
	}
	if txs := f.transactions(t); len(txs) != 0 {
		t.Errorf("got %d transactions before the worker ran, want 0", len(txs))
	}
}

func TestPublishLaterWithoutQueueRunsInline(t *testing.T) {
	f := newFixture(t)

	im := f.readyImport(t, "Date,Desc,Cat,Amt\n2024-01-01,Coffee,Food,-4.50\n")
	if err := f.service.PublishLater(context.Background(), im.ID); err != nil {
		t.Fatalf("PublishLater() error: %v", err)
	}

	if txs := f.transactions(t); len(txs) != 1 {
		t.Errorf("got %d transactions, want 1 (inline fallback)", len(txs))
	}
}
