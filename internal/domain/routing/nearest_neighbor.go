package routing

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// NearestNeighbor ordena los puntos con la heurística del vecino más cercano (servicio de dominio).
// El primer punto es el inicio fijo; desde el último punto colocado se elige el restante con menor
// distancia euclidiana plana. En empate gana el primero en el orden de entrada.
// Devuelve los índices de points en orden de visita. Complejidad O(n²).
func NearestNeighbor(points []orb.Point) []int {
	if len(points) == 0 {
		return nil
	}
	order := make([]int, 0, len(points))
	order = append(order, 0)

	remaining := make([]int, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		remaining = append(remaining, i)
	}

	for len(remaining) > 0 {
		last := points[order[len(order)-1]]
		best := 0
		bestDist := planar.Distance(last, points[remaining[0]])
		for k := 1; k < len(remaining); k++ {
			if d := planar.Distance(last, points[remaining[k]]); d < bestDist {
				best, bestDist = k, d
			}
		}
		order = append(order, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return order
}

// PathLength suma las distancias planas del recorrido en el orden dado.
func PathLength(points []orb.Point, order []int) float64 {
	var total float64
	for i := 1; i < len(order); i++ {
		total += planar.Distance(points[order[i-1]], points[order[i]])
	}
	return total
}
