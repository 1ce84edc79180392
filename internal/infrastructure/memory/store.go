// Package memory implementa los repositorios del núcleo de envíos en memoria, con transacciones
// por copia del estado. Lo usan los tests de casos de uso y de handlers.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/jhoicas/Envios-api/internal/domain/entity"
	"github.com/jhoicas/Envios-api/internal/domain/repository"
)

type state struct {
	shipments  map[string]entity.Shipment
	sequences  map[string]int64 // tenant|prefix -> último valor
	events     []entity.TrackingEvent
	eventIDs   map[string]bool
	routes     map[string]entity.Route
	stops      map[string]entity.RouteStop
	deliveries []entity.Delivery
	tasks      []entity.DeliveryTask
	carriers   map[string]string // tenant|id -> nombre
}

func newState() state {
	return state{
		shipments: map[string]entity.Shipment{},
		sequences: map[string]int64{},
		eventIDs:  map[string]bool{},
		routes:    map[string]entity.Route{},
		stops:     map[string]entity.RouteStop{},
		carriers:  map[string]string{},
	}
}

func (s state) clone() state {
	c := state{
		shipments:  make(map[string]entity.Shipment, len(s.shipments)),
		sequences:  make(map[string]int64, len(s.sequences)),
		events:     append([]entity.TrackingEvent(nil), s.events...),
		eventIDs:   make(map[string]bool, len(s.eventIDs)),
		routes:     make(map[string]entity.Route, len(s.routes)),
		stops:      make(map[string]entity.RouteStop, len(s.stops)),
		deliveries: append([]entity.Delivery(nil), s.deliveries...),
		tasks:      append([]entity.DeliveryTask(nil), s.tasks...),
		carriers:   make(map[string]string, len(s.carriers)),
	}
	for k, v := range s.shipments {
		c.shipments[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	for k, v := range s.eventIDs {
		c.eventIDs[k] = v
	}
	for k, v := range s.routes {
		c.routes[k] = v
	}
	for k, v := range s.stops {
		c.stops[k] = v
	}
	for k, v := range s.carriers {
		c.carriers[k] = v
	}
	return c
}

// Store almacén en memoria. Run serializa las transacciones y solo publica el estado si fn no falla.
type Store struct {
	mu       sync.Mutex
	st       state
	failures map[string][]failure
}

type failure struct {
	skip int
	err  error
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState(), failures: map[string][]failure{}}
}

// Repos devuelve repositorios fuera de transacción sobre el estado publicado.
func (s *Store) Repos() repository.Repos {
	return (&db{store: s, st: &s.st}).repos()
}

// Run ejecuta fn sobre una copia del estado y la publica si fn termina sin error.
func (s *Store) Run(ctx context.Context, fn func(r repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	txState := s.st.clone()
	if err := fn((&db{store: s, st: &txState, locked: true}).repos()); err != nil {
		return err
	}
	s.st = txState
	return nil
}

// AddCarrier registra una transportadora para los resúmenes de listados.
func (s *Store) AddCarrier(tenantID, id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.carriers[key(tenantID, id)] = name
}

// FailOn hace que la próxima llamada a op (ej. "shipments.UpdateState") devuelva err.
// Cada llamada a FailOn encola un fallo.
func (s *Store) FailOn(op string, err error) {
	s.FailAfter(op, 0, err)
}

// FailAfter deja pasar n llamadas a op y hace fallar la siguiente con err.
func (s *Store) FailAfter(op string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], failure{skip: n, err: err})
}

// db vista del estado usada por los repositorios; locked indica que Run ya tiene el mutex.
type db struct {
	store  *Store
	st     *state
	locked bool
}

func (d *db) repos() repository.Repos {
	return repository.Repos{
		Shipments:  &shipmentRepo{d},
		Sequences:  &sequenceRepo{d},
		Events:     &eventRepo{d},
		Routes:     &routeRepo{d},
		Stops:      &stopRepo{d},
		Deliveries: &deliveryRepo{d},
		Tasks:      &taskRepo{d},
		Carriers:   &carrierRepo{d},
	}
}

// with ejecuta fn con el estado bajo el mutex del store, aplicando los fallos inyectados para op.
func (d *db) with(ctx context.Context, op string, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !d.locked {
		d.store.mu.Lock()
		defer d.store.mu.Unlock()
	}
	if queue := d.store.failures[op]; len(queue) > 0 {
		if queue[0].skip > 0 {
			queue[0].skip--
		} else {
			d.store.failures[op] = queue[1:]
			return queue[0].err
		}
	}
	return fn(d.st)
}

func key(parts ...string) string {
	return strings.Join(parts, "|")
}
