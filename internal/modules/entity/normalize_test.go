package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/types"
)

const driverPayload = `{
  "id": 7,
  "active": true,
  "onCall": false,
  "currentInventoryPeriod": {"id": 3},
  "dspr": {"id": 2, "name": "Downtown"},
  "user": {"id": 11, "firstName": "Sam", "lastName": "Lee"},
  "currentInProcessOrder": {"id": 5, "orderStatus": "in_process", "cashTotal": 45.5,
    "address": {"id": 90, "street": "1 Main St", "zipCode": "94110"},
    "user": {"id": 12, "firstName": "Ana"}},
  "queuedOrders": [
    {"id": 6, "orderStatus": "queued", "address": 90, "user": {"id": 12, "lastName": "Ruiz"}},
    8
  ],
  "currentRoute": {"id": 30, "active": true, "dsprDriver": 7,
    "waypoints": [{"id": 5}, {"id": 6}], "finalDestination": {"id": 6}}
}`

func TestNormalizeNestedDriver(t *testing.T) {
	n, err := Normalize([]byte(driverPayload), *One(DsprDrivers))
	require.NoError(t, err)

	assert.Equal(t, types.ID(7), n.ResultID())
	assert.False(t, n.Many)

	d := DsprDriverFrom(n.Entities[DsprDrivers][7])
	assert.Equal(t, types.ID(2), d.DSPR)
	assert.Equal(t, types.ID(11), d.User)
	assert.Equal(t, types.ID(5), d.CurrentInProcessOrder)
	assert.Equal(t, []types.ID{6, 8}, d.QueuedOrders)
	assert.Equal(t, types.ID(30), d.CurrentRoute)
	assert.True(t, d.Active)
	require.NotNil(t, d.OnCall)
	assert.False(t, *d.OnCall)
	assert.True(t, d.HasInventoryPeriod)

	o := OrderFrom(n.Entities[Orders][5])
	assert.Equal(t, "in_process", o.Status)
	assert.Equal(t, int64(4550), o.CashTotal.Amount)
	assert.Equal(t, types.ID(90), o.Address)

	assert.Equal(t, "Downtown", n.Entities[DSPRs][2].String("name"))

	// the same user embedded twice is folded into one record
	u := UserFrom(n.Entities[Users][12])
	assert.Equal(t, "Ana", u.FirstName)
	assert.Equal(t, "Ruiz", u.LastName)

	r := RouteFrom(n.Entities[Routes][30])
	assert.Equal(t, []types.ID{5, 6}, r.Waypoints)
	assert.Equal(t, types.ID(6), r.FinalDestination)
	assert.True(t, r.Contains(5))
	assert.False(t, r.Contains(8))
}

func TestNormalizeArray(t *testing.T) {
	n, err := Normalize([]byte(`[{"id":1,"note":"a"},{"id":2,"note":"b"}]`), *ArrayOf(UserNotes))
	require.NoError(t, err)
	assert.True(t, n.Many)
	assert.Equal(t, []types.ID{1, 2}, n.Result)
	assert.Len(t, n.Entities[UserNotes], 2)
}

func TestNormalizeErrors(t *testing.T) {
	_, err := Normalize([]byte(`{"name":"no id"}`), *One(DSPRs))
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = Normalize([]byte(`{"id":1}`), *ArrayOf(DSPRs))
	assert.ErrorIs(t, err, ErrShape)

	_, err = Normalize([]byte(`{"id":1}`), Shape{Key: "products"})
	assert.ErrorIs(t, err, ErrNoSchema)

	_, err = Normalize([]byte(`{"id":1,"queuedOrders":5}`), *One(DsprDrivers))
	assert.ErrorIs(t, err, ErrShape)

	_, err = Normalize([]byte(`not json`), *One(DSPRs))
	assert.Error(t, err)
}

func TestMergeRecordIsShallowAndPure(t *testing.T) {
	base := Record{"id": types.ID(1), "orderStatus": "queued", "cashTotal": 10.0}
	incoming := Record{"id": types.ID(1), "orderStatus": "in_process"}

	merged := MergeRecord(base, incoming)
	assert.Equal(t, "in_process", merged["orderStatus"])
	assert.Equal(t, 10.0, merged["cashTotal"])
	assert.Equal(t, "queued", base["orderStatus"], "base must not be mutated")

	again := MergeRecord(merged, incoming)
	assert.Equal(t, merged, again)
}

func TestBoolPtrNull(t *testing.T) {
	n, err := Normalize([]byte(`{"id":1,"onCall":null}`), *One(DsprDrivers))
	require.NoError(t, err)
	d := DsprDriverFrom(n.Entities[DsprDrivers][1])
	assert.Nil(t, d.OnCall)
	assert.False(t, d.IsOnCall())
	assert.False(t, d.HasInventoryPeriod)
}

func TestAddressLine(t *testing.T) {
	a := Address{Street: "1 Main St", City: "Oakland", ZipCode: "94607"}
	assert.Equal(t, "1 Main St, Oakland, 94607", a.Line())
}
