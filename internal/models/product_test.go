package models_test

import (
	"testing"

	"price-tracker/internal/models"
)

func TestProductIDIgnoresFragmentAndHostCase(t *testing.T) {
	a := models.ProductID("https://www.Example.com/item/42#reviews")
	b := models.ProductID("https://www.example.com/item/42")

	if a != b {
		t.Errorf("Invalid result, got: %s, instead of: %s.", a, b)
	}
}

func TestProductIDDiffersPerPath(t *testing.T) {
	a := models.ProductID("https://www.example.com/item/42")
	b := models.ProductID("https://www.example.com/item/43")

	if a == b {
		t.Errorf("Invalid result, ids are equal: %s", a)
	}
}

func TestDisplayNameFallsBackToURL(t *testing.T) {
	p := models.Product{URL: "https://shop.test/p/1"}

	if p.DisplayName() != p.URL {
		t.Errorf("Invalid result, got: %s, instead of: %s.", p.DisplayName(), p.URL)
	}
}
