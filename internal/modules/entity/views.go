// README: Typed read-only views over cache records, consumed by selectors.
package entity

import (
	"time"

	"courier/internal/types"
)

const defaultCurrency = "USD"

type User struct {
	ID                    types.ID   `json:"id"`
	FirstName             string     `json:"firstName"`
	LastName              string     `json:"lastName"`
	Email                 string     `json:"email"`
	Role                  string     `json:"userType"`
	DsprDrivers           []types.ID `json:"dsprDrivers"`
	Notes                 []types.ID `json:"notes"`
	IDDocument            types.ID   `json:"identificationDocument"`
	MedicalRecommendation types.ID   `json:"medicalRecommendation"`
}

func UserFrom(r Record) User {
	return User{
		ID:                    r.ID(),
		FirstName:             r.String("firstName"),
		LastName:              r.String("lastName"),
		Email:                 r.String("email"),
		Role:                  r.String("userType"),
		DsprDrivers:           r.Refs("dsprDrivers"),
		Notes:                 r.Refs("notes"),
		IDDocument:            r.Ref("identificationDocument"),
		MedicalRecommendation: r.Ref("medicalRecommendation"),
	}
}

type DSPR struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
}

func DSPRFrom(r Record) DSPR {
	return DSPR{ID: r.ID(), Name: r.String("name")}
}

type DsprDriver struct {
	ID                    types.ID   `json:"id"`
	DSPR                  types.ID   `json:"dspr"`
	User                  types.ID   `json:"user"`
	Active                bool       `json:"active"`
	OnCall                *bool      `json:"onCall"`
	HasInventoryPeriod    bool       `json:"hasInventoryPeriod"`
	CurrentRoute          types.ID   `json:"currentRoute"`
	CurrentInProcessOrder types.ID   `json:"currentInProcessOrder"`
	QueuedOrders          []types.ID `json:"queuedOrders"`
}

// IsOnCall treats an unknown (null) on-call flag as off.
func (d DsprDriver) IsOnCall() bool {
	return d.OnCall != nil && *d.OnCall
}

func DsprDriverFrom(r Record) DsprDriver {
	return DsprDriver{
		ID:                    r.ID(),
		DSPR:                  r.Ref("dspr"),
		User:                  r.Ref("user"),
		Active:                r.Bool("active"),
		OnCall:                r.BoolPtr("onCall"),
		HasInventoryPeriod:    r.Has("currentInventoryPeriod"),
		CurrentRoute:          r.Ref("currentRoute"),
		CurrentInProcessOrder: r.Ref("currentInProcessOrder"),
		QueuedOrders:          r.Refs("queuedOrders"),
	}
}

type Order struct {
	ID          types.ID    `json:"id"`
	User        types.ID    `json:"user"`
	Address     types.ID    `json:"address"`
	DSPR        types.ID    `json:"dspr"`
	DsprDriver  types.ID    `json:"dsprDriver"`
	Status      string      `json:"orderStatus"`
	CashTotal   types.Money `json:"cashTotal"`
	CreatedAt   time.Time   `json:"createdAt"`
	CompletedAt time.Time   `json:"completedAt"`
}

func OrderFrom(r Record) Order {
	return Order{
		ID:          r.ID(),
		User:        r.Ref("user"),
		Address:     r.Ref("address"),
		DSPR:        r.Ref("dspr"),
		DsprDriver:  r.Ref("dsprDriver"),
		Status:      r.String("orderStatus"),
		CashTotal:   types.MoneyFromFloat(r.Float("cashTotal"), defaultCurrency),
		CreatedAt:   r.Time("createdTimestamp"),
		CompletedAt: r.Time("completedTimestamp"),
	}
}

type Address struct {
	ID      types.ID    `json:"id"`
	Street  string      `json:"street"`
	City    string      `json:"city"`
	State   string      `json:"state"`
	ZipCode string      `json:"zipCode"`
	Point   types.Point `json:"point"`
}

// Line renders the address the way maps lookups expect it.
func (a Address) Line() string {
	out := a.Street
	for _, part := range []string{a.City, a.State, a.ZipCode} {
		if part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}

func AddressFrom(r Record) Address {
	return Address{
		ID:      r.ID(),
		Street:  r.String("street"),
		City:    r.String("city"),
		State:   r.String("state"),
		ZipCode: r.String("zipCode"),
		Point:   types.Point{Lat: r.Float("latitude"), Lng: r.Float("longitude")},
	}
}

type Route struct {
	ID                           types.ID   `json:"id"`
	DsprDriver                   types.ID   `json:"dsprDriver"`
	Waypoints                    []types.ID `json:"waypoints"`
	FinalDestination             types.ID   `json:"finalDestination"`
	UsingFinalDestinationInRoute bool       `json:"usingFinalDestinationInRoute"`
	Active                       bool       `json:"active"`
	CurrentLeg                   int        `json:"currentLeg"`
}

// Contains reports whether order id is one of the route's waypoints.
func (r Route) Contains(id types.ID) bool {
	for _, w := range r.Waypoints {
		if w == id {
			return true
		}
	}
	return false
}

func RouteFrom(r Record) Route {
	return Route{
		ID:                           r.ID(),
		DsprDriver:                   r.Ref("dsprDriver"),
		Waypoints:                    r.Refs("waypoints"),
		FinalDestination:             r.Ref("finalDestination"),
		UsingFinalDestinationInRoute: r.Bool("usingFinalDestinationInRoute"),
		Active:                       r.Bool("active"),
		CurrentLeg:                   int(r.Int("currentLeg")),
	}
}

type UserNote struct {
	ID         types.ID  `json:"id"`
	User       types.ID  `json:"user"`
	DsprDriver types.ID  `json:"dsprDriver"`
	Note       string    `json:"note"`
	Visible    bool      `json:"visible"`
	CreatedAt  time.Time `json:"createdAt"`
}

func UserNoteFrom(r Record) UserNote {
	return UserNote{
		ID:         r.ID(),
		User:       r.Ref("user"),
		DsprDriver: r.Ref("dsprDriver"),
		Note:       r.String("note"),
		Visible:    r.Bool("isVisible"),
		CreatedAt:  r.Time("createdTimestamp"),
	}
}
