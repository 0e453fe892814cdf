package tracking

import (
	"fmt"

	h3 "github.com/uber/h3-go/v4"
)

// Resolution 4 cells have roughly a 22 km edge, so a cell plus its
// immediate neighbors comfortably covers the 50 km convergence radius the
// location detector works with.
const geocellResolution = 4

// CellForCoordinates returns the H3 index string for a lat/lng pair.
func CellForCoordinates(lat, lng float64) (string, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lng), geocellResolution)
	if err != nil {
		return "", fmt.Errorf("h3 index %f,%f: %w", lat, lng, err)
	}
	return cell.String(), nil
}

// NeighborCells returns the cell itself plus its ring-1 neighbors, for
// queries that must not miss points just across a cell boundary.
func NeighborCells(cellStr string) ([]string, error) {
	cell := h3.Cell(h3.IndexFromString(cellStr))
	if !cell.IsValid() {
		return nil, fmt.Errorf("invalid h3 cell %q", cellStr)
	}
	disk, err := cell.GridDisk(1)
	if err != nil {
		return nil, fmt.Errorf("grid disk for %q: %w", cellStr, err)
	}
	out := make([]string, 0, len(disk))
	for _, c := range disk {
		out = append(out, c.String())
	}
	return out, nil
}
