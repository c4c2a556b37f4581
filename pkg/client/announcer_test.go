package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAnnouncerPoliteThenAssertive(t *testing.T) {
	region := &fakeRegion{}
	a := NewAnnouncer(region, 5*time.Millisecond)
	defer a.Stop()

	a.Announce("Settings")
	require.Eventually(t, func() bool { return len(region.heard()) == 2 }, time.Second, time.Millisecond)
	require.Equal(t, []string{"polite Settings", "assertive Settings"}, region.heard())
}

func TestAnnouncerDebounces(t *testing.T) {
	region := &fakeRegion{}
	a := NewAnnouncer(region, 20*time.Millisecond)
	defer a.Stop()

	a.Announce("One")
	a.Announce("Two")
	a.Announce("Three")
	require.Eventually(t, func() bool { return len(region.heard()) == 2 }, time.Second, time.Millisecond)
	require.Equal(t, []string{"polite Three", "assertive Three"}, region.heard())
}

func TestAnnouncerStop(t *testing.T) {
	region := &fakeRegion{}
	a := NewAnnouncer(region, 5*time.Millisecond)
	a.Announce("Gone")
	a.Stop()
	time.Sleep(30 * time.Millisecond)
	require.Empty(t, region.heard())
}

func TestAnnouncerWithoutRegion(t *testing.T) {
	var a *Announcer
	a.Announce("ignored")
	NewAnnouncer(nil, 0).Announce("ignored")
}
