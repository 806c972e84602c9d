package batch

import (
	"fmt"
	"testing"

	"github.com/fleetops/dispatchd/core/model"
)

func TestDBSCAN_ClustersAndNoise(t *testing.T) {
	var orders []model.Order
	for i := 0; i < 4; i++ {
		orders = append(orders, orderAt(fmt.Sprintf("dense%d", i), 24.70+float64(i)*0.001, 46.60))
	}
	orders = append(orders, orderAt("outlier", 25.50, 47.50))

	clusters, noise := dbscanCluster(orders, 2, 2)
	if len(clusters) != 1 {
		t.Fatalf("expected one dense cluster got %d", len(clusters))
	}
	if len(clusters[0]) != 4 {
		t.Fatalf("expected 4 members got %d", len(clusters[0]))
	}
	if len(noise) != 1 || noise[0].ID != "outlier" {
		t.Fatalf("expected the outlier as noise, got %v", noise)
	}
}

func TestDBSCAN_TwoSeparateClusters(t *testing.T) {
	var orders []model.Order
	for i := 0; i < 3; i++ {
		orders = append(orders, orderAt(fmt.Sprintf("a%d", i), 24.70+float64(i)*0.001, 46.60))
		orders = append(orders, orderAt(fmt.Sprintf("b%d", i), 24.95+float64(i)*0.001, 46.95))
	}
	clusters, noise := dbscanCluster(orders, 2, 2)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters got %d", len(clusters))
	}
	if len(noise) != 0 {
		t.Fatalf("expected no noise got %d", len(noise))
	}
}

func TestDBSCAN_AllNoiseWhenSparse(t *testing.T) {
	orders := []model.Order{
		orderAt("o1", 24.70, 46.60),
		orderAt("o2", 25.20, 47.20),
		orderAt("o3", 25.70, 47.70),
	}
	clusters, noise := dbscanCluster(orders, 2, 2)
	if len(clusters) != 0 {
		t.Fatalf("sparse points must not cluster, got %d clusters", len(clusters))
	}
	if len(noise) != 3 {
		t.Fatalf("expected 3 noise orders got %d", len(noise))
	}
}

func TestDBSCAN_NoOrderLostOrDuplicated(t *testing.T) {
	var orders []model.Order
	for i := 0; i < 8; i++ {
		orders = append(orders, orderAt(fmt.Sprintf("o%d", i), 24.70+float64(i)*0.003, 46.60))
	}
	orders = append(orders, orderAt("far", 26.00, 48.00))

	clusters, noise := dbscanCluster(orders, 1, 2)
	seen := map[string]int{}
	for _, c := range clusters {
		for _, o := range c {
			seen[o.ID]++
		}
	}
	for _, o := range noise {
		seen[o.ID]++
	}
	if len(seen) != len(orders) {
		t.Fatalf("expected %d distinct orders got %d", len(orders), len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("order %s appears %d times", id, n)
		}
	}
}
