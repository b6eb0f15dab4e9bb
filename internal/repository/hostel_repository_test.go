package repository_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hostel-booking/internal/model"
	"github.com/iliyamo/hostel-booking/internal/repository"
	"github.com/iliyamo/hostel-booking/internal/testutil"
)

func TestHostelOwnership(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, db, "o@example.com", model.RoleHostelOwner)
	intruder := testutil.SeedUser(t, db, "x@example.com", model.RoleHostelOwner)
	repo := repository.NewHostelRepo(db)

	h := &model.Hostel{OwnerID: owner, Name: "Green House", Address: "12 Le Loi", City: "Hue", TotalFloors: 4}
	require.NoError(t, repo.Create(ctx, h))
	require.NotZero(t, h.ID)

	got, err := repo.GetByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Green House", got.Name)
	assert.Equal(t, "Hue", got.City)

	h.Name = "Green House 2"
	require.NoError(t, repo.Update(ctx, h))
	bad := *h
	bad.OwnerID = intruder
	assert.ErrorIs(t, repo.Update(ctx, &bad), repository.ErrForbidden)

	list, err := repo.List(ctx, repository.HostelFilter{City: "Hue"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Green House 2", list[0].Name)
	list, err = repo.List(ctx, repository.HostelFilter{OwnerID: intruder})
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, repo.Delete(ctx, h.ID, intruder), repository.ErrForbidden)
	assert.ErrorIs(t, repo.Delete(ctx, 999, owner), repository.ErrNotFound)
}

func TestHostelDeleteBlockedByActiveBooking(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, db, "o@example.com", model.RoleHostelOwner)
	guest := testutil.SeedUser(t, db, "g@example.com", model.RoleGuest)
	hid := testutil.SeedHostel(t, db, owner, "H")
	room := testutil.SeedRoom(t, db, hid, "101", 100)
	bid := testutil.SeedBooking(t, db, room, guest, model.BookingPending, 100)
	repo := repository.NewHostelRepo(db)

	assert.ErrorIs(t, repo.Delete(ctx, hid, owner), repository.ErrConflict)
	require.NoError(t, repository.NewBookingRepo(db).UpdateStatus(ctx, bid, model.BookingPending, model.BookingCancelled))
	require.NoError(t, repo.DeleteAny(ctx, hid))
	_, err := repo.GetByID(ctx, hid)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRoomCRUD(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, db, "o@example.com", model.RoleHostelOwner)
	other := testutil.SeedUser(t, db, "x@example.com", model.RoleHostelOwner)
	hid := testutil.SeedHostel(t, db, owner, "H")
	repo := repository.NewRoomRepo(db)

	rm := &model.Room{HostelID: hid, RoomNumber: "201", Floor: 2, AreaM2: decimal.RequireFromString("18.5"),
		PricePerMonth: decimal.NewFromInt(2500000), MaxOccupants: 2}
	require.NoError(t, repo.Create(ctx, owner, rm))
	assert.Equal(t, model.RoomAvailable, rm.Status)

	assert.ErrorIs(t, repo.Create(ctx, other, &model.Room{HostelID: hid, RoomNumber: "202", PricePerMonth: decimal.NewFromInt(1)}), repository.ErrForbidden)
	assert.ErrorIs(t, repo.Create(ctx, owner, &model.Room{HostelID: hid, RoomNumber: "201", PricePerMonth: decimal.NewFromInt(1)}), repository.ErrConflict)
	assert.ErrorIs(t, repo.Create(ctx, owner, &model.Room{HostelID: 999, RoomNumber: "1", PricePerMonth: decimal.NewFromInt(1)}), repository.ErrNotFound)

	got, err := repo.GetByID(ctx, rm.ID)
	require.NoError(t, err)
	assert.True(t, got.AreaM2.Equal(decimal.RequireFromString("18.5")))
	assert.True(t, got.PricePerMonth.Equal(decimal.NewFromInt(2500000)))

	rm.Status = model.RoomMaintenance
	rm.HostelID = 999 // ignored
	require.NoError(t, repo.Update(ctx, owner, rm))
	assert.Equal(t, hid, rm.HostelID)
	avail, err := repo.ListByHostel(ctx, hid, model.RoomAvailable)
	require.NoError(t, err)
	assert.Empty(t, avail)
	all, err := repo.ListByHostel(ctx, hid, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.RoomMaintenance])

	assert.ErrorIs(t, repo.Delete(ctx, rm.ID, other), repository.ErrForbidden)
	require.NoError(t, repo.Delete(ctx, rm.ID, owner))
	_, err = repo.GetByID(ctx, rm.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRoomListAcrossHostels(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, db, "o@example.com", model.RoleHostelOwner)
	h1 := testutil.SeedHostel(t, db, owner, "H1")
	h2 := testutil.SeedHostel(t, db, owner, "H2")
	a := testutil.SeedRoom(t, db, h1, "101", 1000000)
	testutil.SeedRoom(t, db, h2, "101", 1500000)
	c := testutil.SeedRoom(t, db, h2, "102", 1800000)
	_, err := db.Exec("UPDATE rooms SET status = ? WHERE id = ?", model.RoomOccupied, c)
	require.NoError(t, err)
	repo := repository.NewRoomRepo(db)

	all, err := repo.List(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, a, all[0].ID)

	avail, err := repo.List(ctx, model.RoomAvailable, 10, 0)
	require.NoError(t, err)
	assert.Len(t, avail, 2)

	occupied, err := repo.List(ctx, model.RoomOccupied, 10, 0)
	require.NoError(t, err)
	require.Len(t, occupied, 1)
	assert.Equal(t, c, occupied[0].ID)

	paged, err := repo.List(ctx, "", 2, 2)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, c, paged[0].ID)
}

func TestReviewRepo(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewReviewRepo(db)

	for i, room := range []uint64{1, 1, 2} {
		require.NoError(t, repo.Create(ctx, &model.Review{RoomID: room, CustomerID: 9, Rating: i + 3, Comment: "ok"}))
	}
	list, err := repo.List(ctx, 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 4, list[0].Rating, "newest first")

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, repo.Delete(ctx, list[0].ID))
	assert.ErrorIs(t, repo.Delete(ctx, list[0].ID), repository.ErrNotFound)
}
