package gate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"vitrina/session"
)

// Target identifies a screen the user can navigate to.
type Target string

const (
	TargetExplore       Target = "screen-explore"
	TargetAgeGate       Target = "screen-gate"
	TargetLogin         Target = "screen-login"
	TargetRegister      Target = "screen-register"
	TargetProfile       Target = "screen-profile"
	TargetFavorites     Target = "screen-favorites"
	TargetMessages      Target = "screen-messages"
	TargetChat          Target = "screen-chat"
	TargetDashboard     Target = "screen-dashboard"
	TargetPlans         Target = "screen-plans"
	TargetCheckout      Target = "screen-checkout"
	TargetSettings      Target = "screen-settings"
	TargetClientProfile Target = "screen-client-profile"
	TargetCreateAd      Target = "screen-create-ad"
)

// requiresAuth lists the screens an anonymous user may not reach.
var requiresAuth = map[Target]bool{
	TargetFavorites: true,
	TargetMessages:  true,
	TargetDashboard: true,
	TargetPlans:     true,
	TargetCheckout:  true,
	TargetSettings:  true,
}

// bottomNavTargets lists the screens that keep the bottom navigation bar.
// Chat is special-cased in navigate: the bar would clutter the thread view.
var bottomNavTargets = map[Target]bool{
	TargetExplore:   true,
	TargetDashboard: true,
	TargetFavorites: true,
	TargetMessages:  true,
	TargetPlans:     true,
	TargetCheckout:  true,
	TargetChat:      true,
}

// activeTab maps screens to their highlighted navigation tab.
var activeTab = map[Target]string{
	TargetExplore:   "nav-explore",
	TargetDashboard: "nav-dashboard",
	TargetFavorites: "nav-favorites",
	TargetMessages:  "nav-messages",
}

// BlockReason explains why a navigation was redirected.
type BlockReason string

const (
	BlockedUnauthenticated BlockReason = "unauthenticated"
	BlockedAgeNotVerified  BlockReason = "age-not-verified"
)

// Decision is the outcome of one navigation request.
type Decision struct {
	// Requested is the target the caller asked for.
	Requested Target
	// Shown is the screen actually rendered (the login or age-gate screen
	// when the request was blocked).
	Shown Target
	// Blocked is set when the request was redirected, with the reason.
	Blocked bool
	Reason  BlockReason
}

// Renderer abstracts the presentation layer. Implementations toggle actual
// screens and chrome; tests record the calls.
type Renderer interface {
	ShowScreen(target Target)
	SetBottomNav(visible bool)
	SetActiveTab(tab string)
	ApplyChrome(chrome Chrome)
}

// Repaint applies loaded data to an already-visible screen.
type Repaint func()

// Loader fetches the data behind a screen and returns the repaint to apply.
// Loaders own their error presentation; the gate only guards staleness.
type Loader func(ctx context.Context) (Repaint, error)

// Gate decides whether a requested screen may render, renders it, and starts
// its data loader. The screen is shown immediately; the loader repaints it
// when data arrives, unless the user has navigated elsewhere in the
// meantime.
type Gate struct {
	sessions *session.Manager
	age      *AgeGate
	renderer Renderer
	log      *zap.Logger

	mu         sync.Mutex
	loaders    map[Target]Loader
	generation uint64
	current    Target

	wg sync.WaitGroup
}

// New wires a navigation gate.
func New(sessions *session.Manager, age *AgeGate, renderer Renderer, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{
		sessions: sessions,
		age:      age,
		renderer: renderer,
		log:      log,
		loaders:  make(map[Target]Loader),
	}
}

// RegisterLoader binds a data loader to a target. At most one per target.
func (g *Gate) RegisterLoader(target Target, loader Loader) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loaders[target] = loader
}

// Current returns the screen last shown.
func (g *Gate) Current() Target {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Navigate runs the gate state machine for one request.
func (g *Gate) Navigate(ctx context.Context, target Target) Decision {
	if requiresAuth[target] && !g.sessions.IsAuthenticated() {
		g.log.Info("navigation blocked",
			zap.String("target", string(target)),
			zap.String("reason", string(BlockedUnauthenticated)))
		inner := g.Navigate(ctx, TargetLogin)
		return Decision{
			Requested: target,
			Shown:     inner.Shown,
			Blocked:   true,
			Reason:    BlockedUnauthenticated,
		}
	}

	if target == TargetExplore && !g.age.Verified() {
		g.log.Info("navigation blocked",
			zap.String("target", string(target)),
			zap.String("reason", string(BlockedAgeNotVerified)))
		inner := g.Navigate(ctx, TargetAgeGate)
		return Decision{
			Requested: target,
			Shown:     inner.Shown,
			Blocked:   true,
			Reason:    BlockedAgeNotVerified,
		}
	}

	g.render(ctx, target)
	return Decision{Requested: target, Shown: target}
}

// render commits to showing the target: screen first, chrome, then the data
// loader. The hide/show step always completes before the loader starts.
func (g *Gate) render(ctx context.Context, target Target) {
	g.mu.Lock()
	g.generation++
	gen := g.generation
	g.current = target
	loader := g.loaders[target]
	g.mu.Unlock()

	g.renderer.ShowScreen(target)
	g.renderer.SetBottomNav(bottomNavTargets[target] && target != TargetChat)
	g.renderer.SetActiveTab(activeTab[target])
	g.updateChromeForRole()

	if loader == nil {
		return
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		repaint, err := loader(ctx)
		if err != nil {
			g.log.Warn("screen data loader failed",
				zap.String("target", string(target)), zap.Error(err))
			return
		}

		// A navigation may have raced the load; stale results are dropped
		// instead of painting a screen that is no longer visible.
		g.mu.Lock()
		stale := gen != g.generation
		g.mu.Unlock()
		if stale {
			g.log.Debug("discarding stale load", zap.String("target", string(target)))
			return
		}
		if repaint != nil {
			repaint()
		}
	}()
}

// updateChromeForRole re-evaluates role-gated chrome. It runs on every
// navigation, not just role-sensitive ones: role and profile completeness
// can change between navigations and the chrome must stay consistent.
func (g *Gate) updateChromeForRole() {
	chrome := ChromeFor(
		g.sessions.IsAuthenticated(),
		g.sessions.Role(),
		g.sessions.IsProfileComplete(),
	)
	g.renderer.ApplyChrome(chrome)
}

// ConfirmAge records the age confirmation and moves on to the catalog.
func (g *Gate) ConfirmAge(ctx context.Context) (Decision, error) {
	if err := g.age.Confirm(); err != nil {
		return Decision{}, err
	}
	return g.Navigate(ctx, TargetExplore), nil
}

// Wait blocks until all in-flight loaders finish. Used on shutdown and in
// tests.
func (g *Gate) Wait() {
	g.wg.Wait()
}
