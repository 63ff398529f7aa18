package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ferramentastecnologia/rosamexicano-reservas/config"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/models"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/tables"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

// ReservationReader is the slice of the store the availability resolver
// needs.
type ReservationReader interface {
	ListReservationsForDate(ctx context.Context, date string, statuses []string) ([]models.Reservation, error)
	CountPeopleForSlot(ctx context.Context, date, horario string, statuses []string) (int, error)
}

// Occupant is the minimal identifying info about a reservation holding a
// table.
type Occupant struct {
	ReservationID string `json:"reservation_id"`
	Code          string `json:"code"`
	Nome          string `json:"nome"`
	People        int    `json:"people"`
	Status        string `json:"status"`
}

// TableStatus is one table's derived occupancy for a date.
type TableStatus struct {
	Number      int         `json:"number"`
	Capacity    int         `json:"capacity"`
	Area        tables.Area `json:"area"`
	Occupied    bool        `json:"occupied"`
	Reservation *Occupant   `json:"reservation,omitempty"`
}

// AvailabilitySummary aggregates a table availability response.
type AvailabilitySummary struct {
	TotalTables       int  `json:"total_tables"`
	OccupiedTables    int  `json:"occupied_tables"`
	AvailableTables   int  `json:"available_tables"`
	AvailableCapacity int  `json:"available_capacity"`
	TotalPeople       int  `json:"total_people"`
	Degraded          bool `json:"degraded,omitempty"`
}

// TableAvailability is the per-table occupancy view for a date.
type TableAvailability struct {
	Date    string              `json:"date"`
	Horario string              `json:"horario,omitempty"`
	Tables  []TableStatus       `json:"tables"`
	Summary AvailabilitySummary `json:"summary"`
}

// CapacityCheck answers "does a party of N fit on date+slot".
type CapacityCheck struct {
	Available bool `json:"available"`
	Capacity  struct {
		MaxCapacity int `json:"max_capacity"`
		Reserved    int `json:"reserved"`
		Available   int `json:"available"`
		Requested   int `json:"requested"`
	} `json:"capacity"`
	Tables struct {
		Total     int `json:"total"`
		Used      int `json:"used"`
		Available int `json:"available"`
		Needed    int `json:"needed"`
	} `json:"tables"`
}

// AvailabilityService derives table occupancy from reservations. Occupancy
// is whole-day: a claimed table blocks every slot of that date.
type AvailabilityService struct {
	store   ReservationReader
	catalog *tables.Catalog
	cfg     config.BusinessConfig
	logger  *zap.Logger
}

// NewAvailabilityService creates a new availability resolver.
func NewAvailabilityService(store ReservationReader, catalog *tables.Catalog, cfg config.BusinessConfig) *AvailabilityService {
	return &AvailabilityService{
		store:   store,
		catalog: catalog,
		cfg:     cfg,
		logger:  util.GetLogger(),
	}
}

// occupancyStatuses returns the reservation statuses that hold tables
// under the configured policy. Every occupancy computation in the service
// goes through this one helper.
func (s *AvailabilityService) occupancyStatuses() []string {
	if s.cfg.Occupancy == config.OccupancyConfirmedOnly {
		return []string{models.ReservationStatusConfirmed, models.ReservationStatusApproved}
	}
	return []string{models.ReservationStatusPending, models.ReservationStatusConfirmed, models.ReservationStatusApproved}
}

// AvailableTables computes per-table occupancy for a date, optionally
// restricted to one area. When the store is unreachable and fail-open is
// configured, every table reports available with the degraded flag set.
func (s *AvailabilityService) AvailableTables(ctx context.Context, date, horario string, area tables.Area) (*TableAvailability, error) {
	ctx, span := util.StartSpan(ctx, "AvailabilityService.AvailableTables")
	defer span.End()

	if err := validateDate(date); err != nil {
		return nil, err
	}
	if area != "" && !tables.IsValidArea(area) {
		return nil, util.Validation("unknown area")
	}

	candidates := s.catalog.All()
	if area != "" {
		candidates = s.catalog.ByArea(area)
	}

	reservations, err := s.store.ListReservationsForDate(ctx, date, s.occupancyStatuses())
	if err != nil {
		if s.cfg.AvailabilityFailOpen {
			s.logger.Warn("Availability query failed, failing open",
				zap.String("date", date), zap.Error(err))
			return s.failOpenResponse(date, horario, candidates), nil
		}
		return nil, util.Internal("failed to load reservations", err)
	}

	occupants := make(map[int]*Occupant)
	totalPeople := 0
	for i := range reservations {
		r := &reservations[i]
		totalPeople += r.NumeroPessoas
		for _, num := range r.MesasSelecionadas {
			occupants[num] = &Occupant{
				ReservationID: r.ID,
				Code:          r.ExternalRef,
				Nome:          r.Nome,
				People:        r.NumeroPessoas,
				Status:        r.Status,
			}
		}
	}

	out := &TableAvailability{Date: date, Horario: horario}
	for _, t := range candidates {
		ts := TableStatus{Number: t.Number, Capacity: t.Capacity, Area: t.Area}
		if occ, ok := occupants[t.Number]; ok {
			ts.Occupied = true
			ts.Reservation = occ
			out.Summary.OccupiedTables++
		} else {
			out.Summary.AvailableTables++
			out.Summary.AvailableCapacity += t.Capacity
		}
		out.Tables = append(out.Tables, ts)
	}
	out.Summary.TotalTables = len(candidates)
	out.Summary.TotalPeople = totalPeople

	return out, nil
}

// CheckAvailability answers whether a party fits on date+slot and how many
// tables it would need.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, date, horario string, people int) (*CapacityCheck, error) {
	ctx, span := util.StartSpan(ctx, "AvailabilityService.CheckAvailability")
	defer span.End()

	if err := validateDate(date); err != nil {
		return nil, err
	}
	if err := s.validateSlot(horario); err != nil {
		return nil, err
	}
	if people < 1 {
		return nil, util.Validation("party size must be positive")
	}

	reserved, err := s.store.CountPeopleForSlot(ctx, date, horario, s.occupancyStatuses())
	if err != nil {
		return nil, util.Internal("failed to count reservations", err)
	}

	// Tables are blocked for the whole day, so the table summary looks at
	// the date, not just the slot.
	dayView, err := s.AvailableTables(ctx, date, "", "")
	if err != nil {
		return nil, err
	}

	check := &CapacityCheck{}
	check.Capacity.MaxCapacity = s.catalog.TotalCapacity()
	check.Capacity.Reserved = reserved
	check.Capacity.Available = check.Capacity.MaxCapacity - reserved
	check.Capacity.Requested = people
	check.Available = check.Capacity.Available >= people

	check.Tables.Total = dayView.Summary.TotalTables
	check.Tables.Used = dayView.Summary.OccupiedTables
	check.Tables.Available = dayView.Summary.AvailableTables
	check.Tables.Needed = s.catalog.CalculateTablesNeeded(people)

	return check, nil
}

// OccupiedTableNumbers returns the set of table numbers held on a date
// under the configured policy.
func (s *AvailabilityService) OccupiedTableNumbers(ctx context.Context, date string) (map[int]bool, error) {
	reservations, err := s.store.ListReservationsForDate(ctx, date, s.occupancyStatuses())
	if err != nil {
		return nil, err
	}
	occupied := make(map[int]bool)
	for i := range reservations {
		for _, num := range reservations[i].MesasSelecionadas {
			occupied[num] = true
		}
	}
	return occupied, nil
}

func (s *AvailabilityService) failOpenResponse(date, horario string, candidates []tables.Table) *TableAvailability {
	out := &TableAvailability{Date: date, Horario: horario}
	for _, t := range candidates {
		out.Tables = append(out.Tables, TableStatus{Number: t.Number, Capacity: t.Capacity, Area: t.Area})
		out.Summary.AvailableCapacity += t.Capacity
	}
	out.Summary.TotalTables = len(candidates)
	out.Summary.AvailableTables = len(candidates)
	out.Summary.Degraded = true
	return out
}

func (s *AvailabilityService) validateSlot(horario string) error {
	for _, slot := range s.cfg.TimeSlots {
		if slot == horario {
			return nil
		}
	}
	return util.Validation("horario is not a bookable time slot")
}

func validateDate(date string) error {
	if date == "" {
		return util.Validation("data is required")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return util.Validation("data must be YYYY-MM-DD")
	}
	return nil
}
