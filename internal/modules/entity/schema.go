// README: Entity schemas describing which record fields reference other entities.
package entity

// Key names one per-type mapping of the cache.
type Key string

const (
	Users                  Key = "users"
	DSPRs                  Key = "dsprs"
	DsprDrivers            Key = "dsprDrivers"
	Orders                 Key = "orders"
	Addresses              Key = "addresses"
	Routes                 Key = "dsprDriverRoutes"
	UserNotes              Key = "userNotes"
	UserIDDocuments        Key = "usersIdDocuments"
	MedicalRecommendations Key = "usersMedicalRecommendations"
	DriverLocations        Key = "dsprDriverLocations"
)

// Relation marks a record field that holds a reference (or a list of
// references when Many is set) to an entity of type Target.
type Relation struct {
	Field  string
	Target Key
	Many   bool
}

type Schema struct {
	Key       Key
	Relations []Relation
}

func (s *Schema) relation(field string) (Relation, bool) {
	for _, r := range s.Relations {
		if r.Field == field {
			return r, true
		}
	}
	return Relation{}, false
}

// schemas is the cache schema. Targets are keys rather than pointers so the
// graph may contain cycles (user -> dsprDrivers -> user).
var schemas = map[Key]*Schema{
	Users: {Key: Users, Relations: []Relation{
		{Field: "dsprDrivers", Target: DsprDrivers, Many: true},
		{Field: "notes", Target: UserNotes, Many: true},
		{Field: "identificationDocument", Target: UserIDDocuments},
		{Field: "medicalRecommendation", Target: MedicalRecommendations},
		{Field: "defaultAddress", Target: Addresses},
	}},
	DSPRs: {Key: DSPRs},
	DsprDrivers: {Key: DsprDrivers, Relations: []Relation{
		{Field: "dspr", Target: DSPRs},
		{Field: "user", Target: Users},
		{Field: "currentRoute", Target: Routes},
		{Field: "currentInProcessOrder", Target: Orders},
		{Field: "queuedOrders", Target: Orders, Many: true},
	}},
	Orders: {Key: Orders, Relations: []Relation{
		{Field: "user", Target: Users},
		{Field: "address", Target: Addresses},
		{Field: "dspr", Target: DSPRs},
		{Field: "dsprDriver", Target: DsprDrivers},
	}},
	Addresses: {Key: Addresses},
	Routes: {Key: Routes, Relations: []Relation{
		{Field: "dsprDriver", Target: DsprDrivers},
		{Field: "waypoints", Target: Orders, Many: true},
		{Field: "finalDestination", Target: Orders},
	}},
	UserNotes: {Key: UserNotes, Relations: []Relation{
		{Field: "user", Target: Users},
		{Field: "dsprDriver", Target: DsprDrivers},
	}},
	UserIDDocuments:        {Key: UserIDDocuments, Relations: []Relation{{Field: "user", Target: Users}}},
	MedicalRecommendations: {Key: MedicalRecommendations, Relations: []Relation{{Field: "user", Target: Users}}},
	DriverLocations: {Key: DriverLocations, Relations: []Relation{
		{Field: "dsprDriver", Target: DsprDrivers},
		{Field: "dspr", Target: DSPRs},
	}},
}

// SchemaFor returns the schema registered for k.
func SchemaFor(k Key) (*Schema, bool) {
	s, ok := schemas[k]
	return s, ok
}

// Known reports whether k is part of the cache schema.
func Known(k Key) bool {
	_, ok := schemas[k]
	return ok
}

// Keys lists every cache key in a stable order.
func Keys() []Key {
	return []Key{
		Users, DSPRs, DsprDrivers, Orders, Addresses, Routes,
		UserNotes, UserIDDocuments, MedicalRecommendations, DriverLocations,
	}
}

// Shape describes the top level of a response body: one entity or an array.
type Shape struct {
	Key  Key
	Many bool
}

func One(k Key) *Shape     { return &Shape{Key: k} }
func ArrayOf(k Key) *Shape { return &Shape{Key: k, Many: true} }
