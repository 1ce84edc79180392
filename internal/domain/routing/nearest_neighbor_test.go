package routing_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Envios-api/internal/domain/routing"
)

func TestNearestNeighbor_OrdenEsperadoSobreUnaLinea(t *testing.T) {
	points := []orb.Point{{0, 0}, {1, 0}, {5, 0}, {2, 0}}

	order := routing.NearestNeighbor(points)

	assert.Equal(t, []int{0, 1, 3, 2}, order,
		"(0,0) → (1,0) → (2,0) → (5,0)")
	assert.InDelta(t, 5.0, routing.PathLength(points, order), 1e-9)
}

func TestNearestNeighbor_Determinista(t *testing.T) {
	points := []orb.Point{{-74.08, 4.60}, {-74.05, 4.65}, {-74.10, 4.70}, {-74.06, 4.61}, {-74.12, 4.58}}

	first := routing.NearestNeighbor(points)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, routing.NearestNeighbor(points))
	}
}

func TestNearestNeighbor_EmpateGanaElPrimeroDeLaEntrada(t *testing.T) {
	// (1,0) y (-1,0) están a la misma distancia del inicio.
	points := []orb.Point{{0, 0}, {1, 0}, {-1, 0}}

	order := routing.NearestNeighbor(points)

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestNearestNeighbor_InicioFijo(t *testing.T) {
	// Aunque empezar en (0,0) sería mejor, el inicio es siempre el primer punto.
	points := []orb.Point{{10, 0}, {0, 0}, {11, 0}}

	order := routing.NearestNeighbor(points)

	assert.Equal(t, 0, order[0])
	assert.Equal(t, []int{0, 2, 1}, order)
}

func TestNearestNeighbor_CasosBorde(t *testing.T) {
	assert.Nil(t, routing.NearestNeighbor(nil))
	assert.Equal(t, []int{0}, routing.NearestNeighbor([]orb.Point{{3, 3}}))
	assert.Zero(t, routing.PathLength([]orb.Point{{3, 3}}, []int{0}))
}
