package service

import (
	"math"
	"sort"

	"github.com/civicfix/municipal-reports/internal/core/ports"
)

const (
	// clusterGridDecimals rounds coordinates to 3 decimal places, an
	// ~111 m grid cell at the equator.
	clusterGridDecimals = 3
	// minClusterSize discards clusters with fewer members.
	minClusterSize = 3
	// maxClusters caps the cluster list, sorted by member count.
	maxClusters = 20
)

type clusterCell struct {
	lat, lng    float64
	count       int
	weightTotal int
}

// ClusterPoints groups report points into density clusters on a rounded
// coordinate grid. Severity is the mean priority weight of the cell.
// Clusters smaller than minClusterSize are discarded; the remainder is
// sorted by member count descending and capped at maxClusters.
func ClusterPoints(points []ports.HeatPoint) []ports.HeatmapCluster {
	cells := make(map[[2]float64]*clusterCell)
	for _, p := range points {
		key := [2]float64{roundTo(p.Lat, clusterGridDecimals), roundTo(p.Lng, clusterGridDecimals)}
		cell, ok := cells[key]
		if !ok {
			cell = &clusterCell{lat: key[0], lng: key[1]}
			cells[key] = cell
		}
		cell.count++
		cell.weightTotal += p.Priority.Weight()
	}

	clusters := make([]ports.HeatmapCluster, 0, len(cells))
	for _, cell := range cells {
		if cell.count < minClusterSize {
			continue
		}
		clusters = append(clusters, ports.HeatmapCluster{
			Lat:      cell.lat,
			Lng:      cell.lng,
			Count:    cell.count,
			Severity: float64(cell.weightTotal) / float64(cell.count),
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Count != clusters[j].Count {
			return clusters[i].Count > clusters[j].Count
		}
		// Stable order for equal counts.
		if clusters[i].Lat != clusters[j].Lat {
			return clusters[i].Lat < clusters[j].Lat
		}
		return clusters[i].Lng < clusters[j].Lng
	})

	if len(clusters) > maxClusters {
		clusters = clusters[:maxClusters]
	}
	return clusters
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
