package sponsors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
	"github.com/jrsteele09/go-sponsor-gate/sponsors"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// pagedLister serves pages in order and fails at failAt (when >= 0).
type pagedLister struct {
	pages  [][]string
	failAt int
	calls  []string
	creds  []string
}

func newPagedLister(pages ...[]string) *pagedLister {
	return &pagedLister{pages: pages, failAt: -1}
}

func (l *pagedLister) SponsorsPage(_ context.Context, credential, cursor string) (*sponsors.Page, error) {
	l.calls = append(l.calls, cursor)
	l.creds = append(l.creds, credential)
	idx := len(l.calls) - 1
	if idx == l.failAt {
		return nil, errors.New("upstream unavailable")
	}
	if idx >= len(l.pages) {
		return &sponsors.Page{}, nil
	}
	p := &sponsors.Page{
		HasNextPage: idx < len(l.pages)-1,
		EndCursor:   fmt.Sprintf("cursor-%d", idx+1),
	}
	for _, login := range l.pages[idx] {
		p.Records = append(p.Records, sponsors.Record{Login: login})
	}
	return p, nil
}

func TestOracle_Membership(t *testing.T) {
	tests := []struct {
		name      string
		pages     [][]string
		visitor   string
		want      bool
		wantCalls int
	}{
		{name: "single page hit", pages: [][]string{{"bob", "carol"}}, visitor: "carol", want: true, wantCalls: 1},
		{name: "single page miss", pages: [][]string{{"bob"}}, visitor: "dave", want: false, wantCalls: 1},
		{name: "empty listing", pages: [][]string{{}}, visitor: "bob", want: false, wantCalls: 1},
		{name: "hit on last page", pages: [][]string{{"a"}, {"b"}, {"carol"}}, visitor: "carol", want: true, wantCalls: 3},
		{name: "miss across pages", pages: [][]string{{"a"}, {"b"}, {"c"}}, visitor: "carol", want: false, wantCalls: 3},
		{name: "logins are case sensitive", pages: [][]string{{"Carol"}}, visitor: "carol", want: false, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := newPagedLister(tt.pages...)
			oracle, err := sponsors.NewOracle(lister)
			require.NoError(t, err)

			got, err := oracle.IsSponsor(context.Background(), "pat", tt.visitor)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Len(t, lister.calls, tt.wantCalls)
		})
	}
}

func TestOracle_PassesCursorAndCredential(t *testing.T) {
	lister := newPagedLister([]string{"a"}, []string{"b"}, []string{"c"})
	oracle, err := sponsors.NewOracle(lister)
	require.NoError(t, err)

	_, err = oracle.IsSponsor(context.Background(), "creator-pat", "zed")
	require.NoError(t, err)
	require.Equal(t, []string{"", "cursor-1", "cursor-2"}, lister.calls)
	require.Equal(t, []string{"creator-pat", "creator-pat", "creator-pat"}, lister.creds)
}

func TestOracle_Idempotent(t *testing.T) {
	lister := newPagedLister([]string{"a", "bob"}, []string{"c"})
	oracle, err := sponsors.NewOracle(lister)
	require.NoError(t, err)

	first, err := oracle.IsSponsor(context.Background(), "pat", "bob")
	require.NoError(t, err)
	second, err := oracle.IsSponsor(context.Background(), "pat", "bob")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.True(t, first)
}

func TestOracle_UpstreamFailure(t *testing.T) {
	t.Run("fail open treats partial listing as final", func(t *testing.T) {
		lister := newPagedLister([]string{"a"}, []string{"carol"})
		lister.failAt = 1
		oracle, err := sponsors.NewOracle(lister)
		require.NoError(t, err)

		got, err := oracle.IsSponsor(context.Background(), "pat", "carol")
		require.NoError(t, err)
		require.False(t, got)
	})

	t.Run("strict mode reports the failure", func(t *testing.T) {
		lister := newPagedLister([]string{"a"}, []string{"carol"})
		lister.failAt = 1
		oracle, err := sponsors.NewOracle(lister, sponsors.WithStrict(true))
		require.NoError(t, err)

		got, err := oracle.IsSponsor(context.Background(), "pat", "carol")
		require.Error(t, err)
		require.False(t, got)
		require.Equal(t, apperrors.KindUpstream, apperrors.KindOf(err))
		require.Equal(t, "upstream_failure", apperrors.CodeOf(err))
	})

	t.Run("match before the failure is honoured", func(t *testing.T) {
		lister := newPagedLister([]string{"carol"}, []string{"x"})
		lister.failAt = 1
		oracle, err := sponsors.NewOracle(lister, sponsors.WithStrict(true))
		require.NoError(t, err)

		got, err := oracle.IsSponsor(context.Background(), "pat", "carol")
		require.NoError(t, err)
		require.True(t, got)
	})

	t.Run("first page failure", func(t *testing.T) {
		lister := newPagedLister([]string{"carol"})
		lister.failAt = 0
		oracle, err := sponsors.NewOracle(lister)
		require.NoError(t, err)

		got, err := oracle.IsSponsor(context.Background(), "pat", "carol")
		require.NoError(t, err)
		require.False(t, got)
	})
}

// endlessLister always claims there is another page.
type endlessLister struct {
	calls int
}

func (l *endlessLister) SponsorsPage(_ context.Context, _, _ string) (*sponsors.Page, error) {
	l.calls++
	return &sponsors.Page{HasNextPage: true, EndCursor: fmt.Sprintf("c%d", l.calls)}, nil
}

func TestOracle_PageCap(t *testing.T) {
	lister := &endlessLister{}
	oracle, err := sponsors.NewOracle(lister, sponsors.WithMaxPages(5), sponsors.WithStrict(true))
	require.NoError(t, err)

	got, err := oracle.IsSponsor(context.Background(), "pat", "carol")
	require.Error(t, err)
	require.False(t, got)
	require.Equal(t, 5, lister.calls)
}

func TestNewOracle_RequiresLister(t *testing.T) {
	_, err := sponsors.NewOracle(nil)
	require.Error(t, err)
}
