package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/qlndemo/coffeerun/backend/internal/roster"
)

type sequenceIDGenerator struct {
	prefix string
	next   int
}

func (g *sequenceIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("%s-%04d", g.prefix, g.next), nil
}

type stubResolver struct {
	options map[string]roster.CoffeeOptionDetail
	names   map[string]string
}

func (r *stubResolver) ResolveCoffeeOption(_ context.Context, optionID string) (roster.CoffeeOptionDetail, error) {
	detail, ok := r.options[optionID]
	if !ok {
		return roster.CoffeeOptionDetail{}, roster.ErrOptionNotFound
	}
	return detail, nil
}

func (r *stubResolver) ColleagueName(_ context.Context, colleagueID string) (string, error) {
	name, ok := r.names[colleagueID]
	if !ok {
		return "", roster.ErrColleagueNotFound
	}
	return name, nil
}

func newTestResolver() *stubResolver {
	return &stubResolver{
		options: map[string]roster.CoffeeOptionDetail{
			"opt-alice": {
				ID:               "opt-alice",
				ColleagueID:      "col-alice",
				DrinkTypeName:    "Flat White",
				SizeName:         "Regular",
				SizeAbbreviation: "Reg",
				MilkOptionName:   "Oat",
			},
			"opt-bob": {
				ID:               "opt-bob",
				ColleagueID:      "col-bob",
				DrinkTypeName:    "Flat White",
				SizeName:         "Regular",
				SizeAbbreviation: "Reg",
				MilkOptionName:   "Oat",
			},
			"opt-carol": {
				ID:               "opt-carol",
				ColleagueID:      "col-carol",
				DrinkTypeName:    "Latte",
				SizeName:         "Large",
				SizeAbbreviation: "Lrg",
				MilkOptionName:   "Full Cream",
				Sugar:            1,
				Notes:            "extra hot",
			},
		},
		names: map[string]string{
			"col-alice": "Alice",
			"col-bob":   "Bob",
			"col-carol": "Carol",
		},
	}
}

func newTestOrderService(t *testing.T, resolver SelectionResolver, clock func() time.Time) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:coffeerun_orders_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Order{}, &OrderItem{}, &ConsolidatedLine{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	service, err := NewService(ServiceConfig{
		Database:   db,
		Resolver:   resolver,
		IDProvider: &sequenceIDGenerator{prefix: "id"},
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("failed to construct order service: %v", err)
	}
	return service, db
}

func fixedClock(seconds int64) func() time.Time {
	return func() time.Time { return time.Unix(seconds, 0).UTC() }
}

var threeSelections = []Selection{
	{ColleagueID: "col-alice", CoffeeOptionID: "opt-alice"},
	{ColleagueID: "col-bob", CoffeeOptionID: "opt-bob"},
	{ColleagueID: "col-carol", CoffeeOptionID: "opt-carol"},
}

func TestCreatePersistsOrderItemsAndLines(t *testing.T) {
	service, db := newTestOrderService(t, newTestResolver(), fixedClock(1700000000))

	order, err := service.Create(context.Background(), "user-1", threeSelections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.CreatedBy != "user-1" {
		t.Fatalf("unexpected creator %q", order.CreatedBy)
	}
	if len(order.ShareToken) != 64 {
		t.Fatalf("expected a 64 character share token, got %d", len(order.ShareToken))
	}
	if len(order.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(order.Items))
	}
	if len(order.Consolidated) != 2 {
		t.Fatalf("expected 2 consolidated lines, got %d", len(order.Consolidated))
	}
	if order.Consolidated[0].DisplayText != "2x Reg Oat Flat White" {
		t.Fatalf("unexpected first line %q", order.Consolidated[0].DisplayText)
	}

	var itemCount, lineCount int64
	if err := db.Model(&OrderItem{}).Count(&itemCount).Error; err != nil {
		t.Fatalf("failed to count items: %v", err)
	}
	if err := db.Model(&ConsolidatedLine{}).Count(&lineCount).Error; err != nil {
		t.Fatalf("failed to count lines: %v", err)
	}
	if itemCount != 3 || lineCount != 2 {
		t.Fatalf("expected 3 items and 2 lines persisted, got %d and %d", itemCount, lineCount)
	}

	var stored OrderItem
	if err := db.Where("colleague_id = ?", "col-alice").Take(&stored).Error; err != nil {
		t.Fatalf("failed to load item: %v", err)
	}
	if stored.ColleagueName != "Alice" || stored.DrinkTypeName != "Flat White" {
		t.Fatalf("snapshot fields not populated: %+v", stored)
	}
}

func TestCreateAbortsWhollyOnUnknownOption(t *testing.T) {
	service, db := newTestOrderService(t, newTestResolver(), fixedClock(1700000000))

	selections := append([]Selection{}, threeSelections...)
	selections = append(selections, Selection{ColleagueID: "col-alice", CoffeeOptionID: "opt-missing"})

	_, err := service.Create(context.Background(), "user-1", selections)
	if !errors.Is(err, ErrCoffeeOptionNotFound) {
		t.Fatalf("expected ErrCoffeeOptionNotFound, got %v", err)
	}

	var orderCount int64
	if err := db.Model(&Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("nothing may persist when a selection fails, found %d orders", orderCount)
	}
}

func TestCreateRejectsMismatchedColleague(t *testing.T) {
	service, _ := newTestOrderService(t, newTestResolver(), fixedClock(1700000000))

	_, err := service.Create(context.Background(), "user-1", []Selection{
		{ColleagueID: "col-bob", CoffeeOptionID: "opt-alice"},
	})
	if !errors.Is(err, ErrSelectionMismatch) {
		t.Fatalf("expected ErrSelectionMismatch, got %v", err)
	}
}

func TestCreateRequiresCreatorAndSelections(t *testing.T) {
	service, _ := newTestOrderService(t, newTestResolver(), fixedClock(1700000000))

	if _, err := service.Create(context.Background(), "", threeSelections); !errors.Is(err, ErrMissingCreator) {
		t.Fatalf("expected ErrMissingCreator, got %v", err)
	}
	if _, err := service.Create(context.Background(), "user-1", nil); !errors.Is(err, ErrEmptyOrder) {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
}

func TestGetByShareTokenMatchesGetByID(t *testing.T) {
	service, _ := newTestOrderService(t, newTestResolver(), fixedClock(1700000000))

	created, err := service.Create(context.Background(), "user-1", threeSelections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID, err := service.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("failed to load by id: %v", err)
	}
	byToken, err := service.GetByShareToken(context.Background(), created.ShareToken)
	if err != nil {
		t.Fatalf("failed to load by share token: %v", err)
	}

	if byToken.ID != byID.ID {
		t.Fatalf("share token resolved a different order: %s vs %s", byToken.ID, byID.ID)
	}
	if len(byToken.Consolidated) != len(byID.Consolidated) {
		t.Fatalf("consolidated views diverge: %d vs %d lines", len(byToken.Consolidated), len(byID.Consolidated))
	}
	for index := range byID.Consolidated {
		if byToken.Consolidated[index].DisplayText != byID.Consolidated[index].DisplayText {
			t.Fatalf("line %d diverged between views", index)
		}
	}
}

func TestGetByIDUnknownOrder(t *testing.T) {
	service, _ := newTestOrderService(t, newTestResolver(), fixedClock(1700000000))

	if _, err := service.GetByID(context.Background(), "missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := service.GetByShareToken(context.Background(), "missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderSnapshotSurvivesCatalogRename(t *testing.T) {
	resolver := newTestResolver()
	service, _ := newTestOrderService(t, resolver, fixedClock(1700000000))

	created, err := service.Create(context.Background(), "user-1", threeSelections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	renamed := resolver.options["opt-alice"]
	renamed.DrinkTypeName = "Velvet White"
	resolver.options["opt-alice"] = renamed

	reloaded, err := service.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("failed to reload order: %v", err)
	}
	for _, item := range reloaded.Items {
		if item.ColleagueID == "col-alice" && item.DrinkTypeName != "Flat White" {
			t.Fatalf("snapshot changed after catalog rename: %q", item.DrinkTypeName)
		}
	}
}

func TestListReturnsNewestFirstWithItemCounts(t *testing.T) {
	current := time.Unix(1700000000, 0).UTC()
	clock := func() time.Time { return current }
	service, _ := newTestOrderService(t, newTestResolver(), clock)

	first, err := service.Create(context.Background(), "user-1", threeSelections[:2])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	current = current.Add(time.Hour)
	second, err := service.Create(context.Background(), "user-1", threeSelections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summaries, err := service.List(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].ID != second.ID || summaries[1].ID != first.ID {
		t.Fatalf("expected newest first, got %s then %s", summaries[0].ID, summaries[1].ID)
	}
	if summaries[0].ItemCount != 3 || summaries[1].ItemCount != 2 {
		t.Fatalf("unexpected item counts: %d and %d", summaries[0].ItemCount, summaries[1].ItemCount)
	}
}
