package quartermaster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func endpoints(ids ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func TestResolvePrefersPrivateOverPublic(t *testing.T) {
	priv := &Quartermaster{ID: "qm-private", Passport: &Passport{ID: "p1", UserSet: map[string]struct{}{"u1": {}}}, Endpoints: endpoints("r1")}
	pub := &Quartermaster{ID: "qm-public", Passport: &Passport{ID: "p2", Public: true}, Endpoints: endpoints("r1")}

	resolver := NewResolver(&StaticSource{All: []*Quartermaster{pub, priv}}, NewMutexVisaCounter(), nil)
	chosen, err := resolver.Resolve(context.Background(), "u1", "r1", false)
	require.NoError(t, err)
	require.Equal(t, "qm-private", chosen.ID)
}

func TestResolveNoCandidateIsAuthError(t *testing.T) {
	pub := &Quartermaster{ID: "qm-public", Passport: &Passport{ID: "p2", Public: false, UserSet: map[string]struct{}{"other": {}}}, Endpoints: endpoints("r1")}
	resolver := NewResolver(&StaticSource{All: []*Quartermaster{pub}}, NewMutexVisaCounter(), nil)
	_, err := resolver.Resolve(context.Background(), "u1", "r1", false)
	require.Error(t, err)
}

func TestResolveDropsExhaustedVisa(t *testing.T) {
	visa := &Visa{ID: "visa-1", CallsAllowed: 1, IntervalSeconds: 60}
	qm := &Quartermaster{ID: "qm1", Passport: &Passport{ID: "p1", Public: true}, Visa: visa, Endpoints: endpoints("r1")}
	counter := NewMutexVisaCounter()
	resolver := NewResolver(&StaticSource{All: []*Quartermaster{qm}}, counter, nil)

	chosen, err := resolver.Resolve(context.Background(), "u1", "r1", true)
	require.NoError(t, err)
	require.Equal(t, "qm1", chosen.ID)

	_, err = resolver.Resolve(context.Background(), "u1", "r1", true)
	require.ErrorContains(t, err, "rate limit")
}

func TestResolveTieBrokenByRecentCallsThenID(t *testing.T) {
	a := &Quartermaster{ID: "qm-b", Passport: &Passport{ID: "p1", Public: true}, Endpoints: endpoints("r1"), RecentCalls: 3}
	b := &Quartermaster{ID: "qm-a", Passport: &Passport{ID: "p2", Public: true}, Endpoints: endpoints("r1"), RecentCalls: 1}
	c := &Quartermaster{ID: "qm-c", Passport: &Passport{ID: "p3", Public: true}, Endpoints: endpoints("r1"), RecentCalls: 1}
	resolver := NewResolver(&StaticSource{All: []*Quartermaster{a, c, b}}, NewMutexVisaCounter(), nil)
	chosen, err := resolver.Resolve(context.Background(), "anyone", "r1", false)
	require.NoError(t, err)
	require.Equal(t, "qm-a", chosen.ID)
}
