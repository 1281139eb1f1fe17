package service

import "testing"

func TestDemandQuantity(t *testing.T) {
	cases := []struct {
		total, usage, waste float64
		want                float64
	}{
		{1000, 1.2, 5, 1260},
		{500, 1, 10, 550},
		{500, 2, 0, 1000},
		{0, 1.5, 10, 0},
		{333, 0.35, 3, 120.05},
	}
	for _, c := range cases {
		if got := DemandQuantity(c.total, c.usage, c.waste); got != c.want {
			t.Fatalf("DemandQuantity(%v, %v, %v) = %v, want %v", c.total, c.usage, c.waste, got, c.want)
		}
	}
}

func TestPurchaseQuantityNeverNegative(t *testing.T) {
	if got := PurchaseQuantity(100, 120); got != 0 {
		t.Fatalf("expected 0 when inventory covers demand, got %v", got)
	}
	if got := PurchaseQuantity(550, 50.5); got != 499.5 {
		t.Fatalf("expected 499.5, got %v", got)
	}
}

func TestLineAmount(t *testing.T) {
	if got := LineAmount(550, 2, 10); got != 1210 {
		t.Fatalf("expected 1210, got %v", got)
	}
	if got := LineAmount(3, 0.1, 0); got != 0.3 {
		t.Fatalf("expected 0.3, got %v", got)
	}
	if got := sumAmounts([]float64{0.1, 0.2}); got != 0.3 {
		t.Fatalf("expected 0.3, got %v", got)
	}
}
