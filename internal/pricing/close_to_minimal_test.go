package pricing

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/dkuzmin/repricer-worker/internal/models"
	"github.com/dkuzmin/repricer-worker/internal/repository"
)

type mockCompetitorStore struct {
	competitors []models.Competitor
}

func (m *mockCompetitorStore) FindByShopItem(ctx context.Context, shopItemID string) ([]models.Competitor, error) {
	return m.competitors, nil
}

type mockCatalogStore struct {
	entries map[int64]*models.CatalogEntry
}

func (m *mockCatalogStore) FindEntry(ctx context.Context, productID, skuID int64) (*models.CatalogEntry, error) {
	entry, ok := m.entries[productID]
	if !ok {
		return nil, repository.ErrCatalogEntryNotFound
	}
	return entry, nil
}

func selectorFor(prices map[int64][2]int64) *CompetitorSelector {
	competitors := &mockCompetitorStore{}
	catalog := &mockCatalogStore{entries: map[int64]*models.CatalogEntry{}}
	for productID, pair := range prices {
		competitors.competitors = append(competitors.competitors, models.Competitor{
			ID:         fmt.Sprintf("link-%d", productID),
			ShopItemID: "item-1",
			ProductID:  productID,
			SkuID:      1,
		})
		catalog.entries[productID] = &models.CatalogEntry{
			ProductID:       productID,
			SkuID:           1,
			Price:           pair[0],
			AvailableAmount: pair[1],
		}
	}
	return NewCompetitorSelector(competitors, catalog, zap.NewNop())
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestCloseToMinimalUndercutsCheapestInStockCompetitor(t *testing.T) {
	// Three tracked rivals; the 421000 one is sold out, so 197000 is the
	// reference price. 197000 - 1000 sits inside the thresholds.
	selector := selectorFor(map[int64][2]int64{
		101: {837000, 5},
		102: {197000, 3},
		103: {421000, 0},
	})
	strategy := NewCloseToMinimal(selector)

	result, err := strategy.Calculate(context.Background(), "item-1", 297000, Options{
		Step:             1000,
		MinimumThreshold: int64Ptr(187000),
		MaximumThreshold: int64Ptr(287000),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result == nil {
		t.Fatal("expected a price change")
	}
	if result.NewPrice != 196000 {
		t.Errorf("got new price %d, want 196000", result.NewPrice)
	}
	if result.CompetitorID != "link-102" {
		t.Errorf("got competitor %q, want the link of the 197000 listing", result.CompetitorID)
	}
}

func TestCloseToMinimalClampsToMinimumThreshold(t *testing.T) {
	selector := selectorFor(map[int64][2]int64{101: {100000, 1}})
	strategy := NewCloseToMinimal(selector)

	result, err := strategy.Calculate(context.Background(), "item-1", 150000, Options{
		Step:             5000,
		MinimumThreshold: int64Ptr(120000),
		MaximumThreshold: int64Ptr(200000),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result == nil || result.NewPrice != 120000 {
		t.Fatalf("got %+v, want clamp to 120000", result)
	}
}

func TestCloseToMinimalClampsToMaximumThreshold(t *testing.T) {
	selector := selectorFor(map[int64][2]int64{101: {500000, 1}})
	strategy := NewCloseToMinimal(selector)

	result, err := strategy.Calculate(context.Background(), "item-1", 150000, Options{
		Step:             1000,
		MinimumThreshold: int64Ptr(120000),
		MaximumThreshold: int64Ptr(200000),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result == nil || result.NewPrice != 200000 {
		t.Fatalf("got %+v, want clamp to 200000", result)
	}
}

func TestCloseToMinimalNoChangeWhenCandidateEqualsCurrent(t *testing.T) {
	selector := selectorFor(map[int64][2]int64{101: {197000, 1}})
	strategy := NewCloseToMinimal(selector)

	result, err := strategy.Calculate(context.Background(), "item-1", 196000, Options{Step: 1000})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result != nil {
		t.Errorf("got %+v, want no change when already at the target", result)
	}
}

func TestCloseToMinimalNoChangeWhenAllCompetitorsSoldOut(t *testing.T) {
	selector := selectorFor(map[int64][2]int64{
		101: {100000, 0},
		102: {110000, 0},
	})
	strategy := NewCloseToMinimal(selector)

	result, err := strategy.Calculate(context.Background(), "item-1", 150000, Options{Step: 1000})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result != nil {
		t.Errorf("got %+v, want no change without in-stock competitors", result)
	}
}

// Running the same inputs twice through a calculation followed by applying the
// decision must converge: the second run proposes nothing.
func TestCloseToMinimalIdempotent(t *testing.T) {
	selector := selectorFor(map[int64][2]int64{101: {197000, 2}})
	strategy := NewCloseToMinimal(selector)
	opts := Options{Step: 1000, MinimumThreshold: int64Ptr(100000), MaximumThreshold: int64Ptr(300000)}

	first, err := strategy.Calculate(context.Background(), "item-1", 297000, opts)
	if err != nil {
		t.Fatalf("first Calculate: %v", err)
	}
	if first == nil {
		t.Fatal("expected a change on the first pass")
	}

	second, err := strategy.Calculate(context.Background(), "item-1", first.NewPrice, opts)
	if err != nil {
		t.Fatalf("second Calculate: %v", err)
	}
	if second != nil {
		t.Errorf("second pass proposed %+v, want no change", second)
	}
}

func TestRegistryRejectsUnregisteredStrategy(t *testing.T) {
	registry := NewRegistry(selectorFor(nil))

	if _, err := registry.Get(models.StrategyQuantityDependent); err == nil {
		t.Fatal("expected an error for a strategy with no calculator")
	}
	if _, err := registry.Get(models.StrategyCloseToMinimal); err != nil {
		t.Fatalf("close_to_minimal should be registered: %v", err)
	}
	if _, err := registry.Get(models.StrategyEqual); err != nil {
		t.Fatalf("equal should be registered: %v", err)
	}
}
