package authfakes

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-sponsor-gate/auth"
	"github.com/jrsteele09/go-sponsor-gate/github"
)

var (
	_ auth.Platform      = (*FakePlatform)(nil)
	_ auth.SponsorOracle = (*FakeOracle)(nil)
)

// FakePlatform maps authorization codes to access tokens and access tokens to users.
type FakePlatform struct {
	Codes map[string]string
	Users map[string]*github.User

	ExchangeErr error
	ViewerErr   error

	lock          sync.Mutex
	ExchangeCalls int
	ViewerCalls   int
}

func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		Codes: make(map[string]string),
		Users: make(map[string]*github.User),
	}
}

// WithVisitor registers code so that it resolves to login.
func (p *FakePlatform) WithVisitor(code, login, name string) *FakePlatform {
	accessToken := "gho_" + login
	p.Codes[code] = accessToken
	p.Users[accessToken] = &github.User{Login: login, Name: name}
	return p
}

func (p *FakePlatform) Exchange(_ context.Context, code string) (string, error) {
	p.lock.Lock()
	p.ExchangeCalls++
	p.lock.Unlock()
	if p.ExchangeErr != nil {
		return "", p.ExchangeErr
	}
	accessToken, ok := p.Codes[code]
	if !ok {
		return "", errors.New("bad_verification_code")
	}
	return accessToken, nil
}

func (p *FakePlatform) Viewer(_ context.Context, accessToken string) (*github.User, error) {
	p.lock.Lock()
	p.ViewerCalls++
	p.lock.Unlock()
	if p.ViewerErr != nil {
		return nil, p.ViewerErr
	}
	user, ok := p.Users[accessToken]
	if !ok {
		return nil, errors.New("bad credentials")
	}
	return user, nil
}

// Calls returns the total number of platform round trips.
func (p *FakePlatform) Calls() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.ExchangeCalls + p.ViewerCalls
}

// FakeOracle answers from a fixed sponsor set per credential.
type FakeOracle struct {
	Sponsors map[string][]string
	Err      error

	lock  sync.Mutex
	Calls int
}

func NewFakeOracle() *FakeOracle {
	return &FakeOracle{Sponsors: make(map[string][]string)}
}

func (o *FakeOracle) IsSponsor(_ context.Context, credential, visitorLogin string) (bool, error) {
	o.lock.Lock()
	o.Calls++
	o.lock.Unlock()
	if o.Err != nil {
		return false, o.Err
	}
	for _, login := range o.Sponsors[credential] {
		if login == visitorLogin {
			return true, nil
		}
	}
	return false, nil
}
