package ticket_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/turnstile/internal/access"
	"github.com/daap14/turnstile/internal/auth"
	"github.com/daap14/turnstile/internal/clock"
	"github.com/daap14/turnstile/internal/ticket"
)

type scanFixture struct {
	ledger  *memLedger
	scanner *ticket.Scanner
	fresh   *ticket.Ticket
}

func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()

	ledger := newMemLedger()
	catalog := newMemCatalog(newEvent(100, nil))
	teams := creatorTeams{creatorID: {memberID: true}}
	resolver := access.NewResolver(catalog, teams)

	return &scanFixture{
		ledger:  ledger,
		scanner: ticket.NewScanner(ledger, catalog, resolver, clock.NewFixed(testNow)),
		fresh:   ledger.seed("QR7K2M", eventID, ticket.StateValid, "Ana Lopez"),
	}
}

func TestScan_CreatorAcceptsFreshTicket(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)

	res := f.scanner.Scan(context.Background(), "QR7K2M", identity(creatorID, auth.RolePromoter))

	assert.Equal(t, ticket.ScanAccepted, res.Outcome)
	assert.Equal(t, "success", res.Status())
	assert.Equal(t, "green", res.Color())
	assert.Equal(t, f.fresh.ID, res.TicketID)
	assert.Equal(t, "Ana Lopez", res.AttendeeName)
	assert.Equal(t, "Summer Fest", res.EventName)
	assert.Equal(t, ticket.StateUsed, f.ledger.state(f.fresh.ID))

	stored, err := f.ledger.GetByID(context.Background(), f.fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ScannedAt)
	assert.True(t, stored.ScannedAt.Equal(testNow))
}

func TestScan_SecondScanIsAlreadyUsed(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)
	creator := identity(creatorID, auth.RolePromoter)

	first := f.scanner.Scan(context.Background(), "QR7K2M", creator)
	second := f.scanner.Scan(context.Background(), "qr7k2m", creator)

	require.True(t, first.Accepted())
	assert.Equal(t, ticket.ScanAlreadyUsed, second.Outcome)
	assert.Equal(t, "red", second.Color())
	assert.Equal(t, "error", second.Status())
	assert.Equal(t, "Ana Lopez", second.AttendeeName)
	assert.Equal(t, "Summer Fest", second.EventName)
	assert.Equal(t, f.fresh.ID, second.TicketID)
}

func TestScan_TeamMemberAndStranger(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)
	other := f.ledger.seed("ZZ11YY", eventID, ticket.StateValid, "Bo")

	stranger := f.scanner.Scan(context.Background(), "ZZ11YY", identity(strangerID, auth.RoleScanner))
	member := f.scanner.Scan(context.Background(), "QR7K2M", identity(memberID, auth.RoleScanner))

	assert.Equal(t, ticket.ScanUnauthorized, stranger.Outcome)
	assert.Equal(t, "red", stranger.Color())
	assert.Equal(t, ticket.StateValid, f.ledger.state(other.ID), "unauthorized scan must not consume the ticket")

	assert.Equal(t, ticket.ScanAccepted, member.Outcome)
	assert.Equal(t, "green", member.Color())
}

func TestScan_AdminMayScanAnyEvent(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)

	res := f.scanner.Scan(context.Background(), "QR7K2M", identity(adminID, auth.RoleAdmin))

	assert.Equal(t, ticket.ScanAccepted, res.Outcome)
}

func TestScan_UnauthorizedDoesNotRevealState(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)
	used := f.ledger.seed("USED01", eventID, ticket.StateUsed, "Cy")

	res := f.scanner.Scan(context.Background(), "USED01", identity(strangerID, auth.RoleUser))

	assert.Equal(t, ticket.ScanUnauthorized, res.Outcome)
	assert.Zero(t, res.TicketID)
	assert.Empty(t, res.AttendeeName)
	assert.Empty(t, res.EventName)
	assert.Equal(t, ticket.StateUsed, f.ledger.state(used.ID))
}

func TestScan_Lookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  func(f *scanFixture) string
		want ticket.ScanOutcome
	}{
		{name: "unknown code", raw: func(*scanFixture) string { return "NOPE00" }, want: ticket.ScanNotFound},
		{name: "empty code", raw: func(*scanFixture) string { return "  " }, want: ticket.ScanNotFound},
		{name: "json envelope", raw: func(*scanFixture) string { return `{"code":"qr7k2m"}` }, want: ticket.ScanAccepted},
		{name: "legacy envelope", raw: func(*scanFixture) string { return `{"codigo":"QR7K2M"}` }, want: ticket.ScanAccepted},
		{name: "legacy id form", raw: func(f *scanFixture) string { return fmt.Sprintf("njoy-ticket-%d", f.fresh.ID) }, want: ticket.ScanAccepted},
		{name: "legacy id form unknown id", raw: func(*scanFixture) string { return "NJOY-TICKET-999" }, want: ticket.ScanNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newScanFixture(t)

			res := f.scanner.Scan(context.Background(), tt.raw(f), identity(creatorID, auth.RolePromoter))

			assert.Equal(t, tt.want, res.Outcome)
		})
	}
}

func TestScan_StoreFailureIsReported(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)
	f.ledger.getErr = errors.New("connection refused")

	res := f.scanner.Scan(context.Background(), "QR7K2M", identity(creatorID, auth.RolePromoter))

	assert.Equal(t, ticket.ScanError, res.Outcome)
	assert.Equal(t, "red", res.Color())
}

func TestScan_ConcurrentScansAcceptExactlyOnce(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)
	creator := identity(creatorID, auth.RolePromoter)

	const scanners = 25
	results := make([]ticket.ScanResult, scanners)
	var wg sync.WaitGroup
	for i := range scanners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.scanner.Scan(context.Background(), "QR7K2M", creator)
		}()
	}
	wg.Wait()

	accepted, used := 0, 0
	for _, r := range results {
		switch r.Outcome {
		case ticket.ScanAccepted:
			accepted++
		case ticket.ScanAlreadyUsed:
			used++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, scanners-1, used)
}

func TestReactivate(t *testing.T) {
	t.Parallel()

	t.Run("creator restores a used ticket", func(t *testing.T) {
		t.Parallel()
		f := newScanFixture(t)
		creator := identity(creatorID, auth.RolePromoter)
		require.True(t, f.scanner.Scan(context.Background(), "QR7K2M", creator).Accepted())

		tk, err := f.scanner.Reactivate(context.Background(), f.fresh.ID, creator)

		require.NoError(t, err)
		assert.Equal(t, ticket.StateValid, tk.State)
		assert.Nil(t, tk.ScannedAt)
		assert.Equal(t, ticket.StateValid, f.ledger.state(f.fresh.ID))
		assert.True(t, f.scanner.Scan(context.Background(), "QR7K2M", creator).Accepted(), "reactivated ticket can be scanned again")
	})

	t.Run("admin may reactivate", func(t *testing.T) {
		t.Parallel()
		f := newScanFixture(t)
		used := f.ledger.seed("USED02", eventID, ticket.StateUsed, "Di")

		_, err := f.scanner.Reactivate(context.Background(), used.ID, identity(adminID, auth.RoleAdmin))

		assert.NoError(t, err)
	})

	t.Run("team member may not", func(t *testing.T) {
		t.Parallel()
		f := newScanFixture(t)
		used := f.ledger.seed("USED03", eventID, ticket.StateUsed, "Ed")

		_, err := f.scanner.Reactivate(context.Background(), used.ID, identity(memberID, auth.RoleScanner))

		assert.ErrorIs(t, err, ticket.ErrForbidden)
		assert.Equal(t, ticket.StateUsed, f.ledger.state(used.ID))
	})

	t.Run("valid ticket", func(t *testing.T) {
		t.Parallel()
		f := newScanFixture(t)

		_, err := f.scanner.Reactivate(context.Background(), f.fresh.ID, identity(creatorID, auth.RolePromoter))

		assert.ErrorIs(t, err, ticket.ErrTicketNotUsed)
	})

	t.Run("unknown ticket", func(t *testing.T) {
		t.Parallel()
		f := newScanFixture(t)

		_, err := f.scanner.Reactivate(context.Background(), 999, identity(creatorID, auth.RolePromoter))

		assert.ErrorIs(t, err, ticket.ErrTicketNotFound)
	})
}
