package client_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/netpac/internal/client"
	"github.com/vovakirdan/netpac/internal/config"
	"github.com/vovakirdan/netpac/internal/game"
	"github.com/vovakirdan/netpac/internal/maps"
	"github.com/vovakirdan/netpac/internal/server"
	"github.com/vovakirdan/netpac/internal/session"
)

const e2eMap = "2222222222\n" +
	"2111111112\n" +
	"2111111112\n" +
	"2111111112\n" +
	"2111111112\n" +
	"2222222222\n"

func startServer(t *testing.T) string {
	t.Helper()
	rules := config.DefaultRules()
	rules.Tick.Period = 10 * time.Millisecond

	m, err := maps.Parse("e2e.map", []byte(e2eMap))
	if err != nil {
		t.Fatal(err)
	}

	logger := log.New(io.Discard)
	reg := session.NewRegistry(rules.Players.Max)
	ctrl := game.NewController(rules, reg, maps.NewRotation([]*maps.Map{m}), logger)
	srv := server.New(server.Config{Address: "127.0.0.1:0", Rules: rules, PayloadGrace: 50 * time.Millisecond}, reg, ctrl, logger)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)
	go func() {
		ctrl.Run(ctx)
		done <- struct{}{}
	}()
	go func() {
		_ = srv.Serve(ctx)
		done <- struct{}{}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		<-done
	})
	return srv.Addr().String()
}

func dial(t *testing.T, addr, name string) *client.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, addr, name)
	if err != nil {
		t.Fatalf("Dial(%q) failed: %v", name, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// waitFor applies packets to st until cond holds.
func waitFor(t *testing.T, c *client.Client, st *client.State, what string, cond func() bool) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for !cond() {
		select {
		case p, ok := <-c.Packets():
			if !ok {
				t.Fatalf("%s: connection closed waiting for %s: %v", c.Name(), what, c.Err())
			}
			st.Apply(p)
		case <-timeout:
			t.Fatalf("%s: timed out waiting for %s", c.Name(), what)
		}
	}
}

func TestClientPlaysAgainstServer(t *testing.T) {
	addr := startServer(t)

	alice := dial(t, addr, "alice")
	bob := dial(t, addr, "bob")
	if alice.ID() == bob.ID() {
		t.Fatalf("Both clients got ID %d", alice.ID())
	}

	if _, err := client.Dial(context.Background(), addr, "alice"); !errors.Is(err, client.ErrNameInUse) {
		t.Errorf("Duplicate Dial error = %v, expected ErrNameInUse", err)
	}

	aliceState := client.NewState(alice.ID(), alice.Name())
	bobState := client.NewState(bob.ID(), bob.Name())

	for _, tc := range []struct {
		c  *client.Client
		st *client.State
	}{
		{alice, aliceState},
		{bob, bobState},
	} {
		st := tc.st
		waitFor(t, tc.c, st, "the map", func() bool {
			return st.InRound && st.Tiles != nil && st.Me().Active
		})
		if st.Width != 10 || st.Height != 6 {
			t.Errorf("%s: map is %dx%d, expected 10x6", tc.c.Name(), st.Width, st.Height)
		}
	}

	if aliceState.Spawn == bobState.Spawn {
		t.Errorf("Both players spawned at %v", aliceState.Spawn)
	}
	if p := bobState.Players[alice.ID()]; p == nil || p.Name != "alice" {
		t.Errorf("bob does not know alice: %+v", p)
	}

	if err := alice.Say("hello"); err != nil {
		t.Fatalf("Say() failed: %v", err)
	}
	waitFor(t, bob, bobState, "alice's message", func() bool {
		for _, line := range bobState.Chat {
			if line.From == alice.ID() && line.Text == "hello" {
				return true
			}
		}
		return false
	})

	if err := alice.Quit(); err != nil {
		t.Fatalf("Quit() failed: %v", err)
	}
	waitFor(t, bob, bobState, "alice to leave", func() bool {
		_, known := bobState.Players[alice.ID()]
		return !known
	})
}
