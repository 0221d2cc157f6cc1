// Package store provides the shared calculator session: one conversion
// engine, its evaluation history, and registry persistence.
package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lemonberrylabs/unitcalc/pkg/convert"
	"github.com/lemonberrylabs/unitcalc/pkg/expr"
	"github.com/lemonberrylabs/unitcalc/pkg/metrics"
	"github.com/lemonberrylabs/unitcalc/pkg/parser"
	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// Entry is one evaluation recorded in the session history.
type Entry struct {
	Input     string    `json:"input"`
	Canonical string    `json:"canonical,omitempty"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

// Result is a successful evaluation.
type Result struct {
	Canonical string
	Quantity  types.Quantity
}

// Options configure a Session.
type Options struct {
	// HistorySize bounds the history; zero disables it.
	HistorySize    int
	ExponentPolicy expr.ExponentPolicy
	Logger         *log.Logger
}

// Session is safe for concurrent use. Evaluations share a read lock;
// registry mutations take the write lock.
type Session struct {
	mu     sync.RWMutex
	engine *convert.Engine

	histMu  sync.Mutex
	history []Entry

	opts   Options
	logger *log.Logger
}

// notFoundError marks a lookup of a symbol the registry does not hold.
type notFoundError struct{ error }

func (e notFoundError) Unwrap() error { return e.error }

// conflictError marks a definition that collides with an existing one.
type conflictError struct{ error }

func (e conflictError) Unwrap() error { return e.error }

// IsNotFound reports whether err refers to a missing unit or prefix.
func IsNotFound(err error) bool {
	var nf notFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err refers to a duplicate unit or prefix.
func IsConflict(err error) bool {
	var c conflictError
	return errors.As(err, &c)
}

// New returns a session over a validated copy of reg.
func New(reg *convert.Registry, opts Options) (*Session, error) {
	engine, err := convert.New(reg)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Session{engine: engine, opts: opts, logger: logger}
	s.updateGauges()
	return s, nil
}

// Evaluate parses and evaluates input and records it in the history.
// input is copied, so callers may pass strings backed by reused buffers.
func (s *Session) Evaluate(input string) (Result, error) {
	input = strings.Clone(input)
	start := time.Now()
	res, err := s.evaluate(input)
	metrics.ObserveEvaluation(time.Since(start), err)

	entry := Entry{Input: input, Canonical: res.Canonical, Time: start}
	if err != nil {
		entry.Error = err.Error()
		s.logger.Debug("evaluation failed", "input", input, "err", err)
	} else {
		entry.Result = res.Quantity.String()
	}
	s.record(entry)
	return res, err
}

func (s *Session) evaluate(input string) (Result, error) {
	node, err := expr.Parse(input)
	if err != nil {
		return Result{}, err
	}
	if node == nil {
		return Result{}, types.NewSyntaxError("empty expression")
	}
	res := Result{Canonical: node.String()}

	s.mu.RLock()
	defer s.mu.RUnlock()
	q, err := expr.EvaluateWith(node, s.engine, expr.Options{ExponentPolicy: s.opts.ExponentPolicy})
	if err != nil {
		return res, err
	}
	res.Quantity = q
	return res, nil
}

// Convert expresses value in from as a quantity in to.
func (s *Session) Convert(value float64, from, to string) (types.Quantity, error) {
	q, err := s.convert(value, from, to)
	metrics.ObserveConversion(err)
	return q, err
}

func (s *Session) convert(value float64, from, to string) (types.Quantity, error) {
	src, err := expr.ParseUnit(from)
	if err != nil {
		return types.Quantity{}, err
	}
	dst, err := expr.ParseUnit(to)
	if err != nil {
		return types.Quantity{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	factor, err := s.engine.Convert(src, dst)
	if err != nil {
		return types.Quantity{}, err
	}
	return types.NewQuantity(value*factor, dst), nil
}

// AddUnit defines sym as scale × the unit expression def. An empty def
// defines a base unit.
func (s *Session) AddUnit(sym string, scale float64, def string) error {
	unit, err := expr.ParseUnit(def)
	if err == nil {
		s.mu.Lock()
		exists := s.engine.HasUnit(sym)
		err = s.engine.AddUnit(sym, scale, unit)
		s.mu.Unlock()
		if err != nil && exists {
			err = conflictError{err}
		}
	}
	return s.mutated(metrics.OpAddUnit, err, "unit added", "symbol", sym)
}

// AddPrefix defines sym as the prefix base^exponent.
func (s *Session) AddPrefix(sym string, base, exponent float64) error {
	s.mu.Lock()
	exists := s.engine.HasPrefix(sym)
	err := s.engine.AddPrefix(sym, base, exponent)
	s.mu.Unlock()
	if err != nil && exists {
		err = conflictError{err}
	}
	return s.mutated(metrics.OpAddPrefix, err, "prefix added", "symbol", sym)
}

// DelUnit removes sym and its dependents, returning every removed symbol.
func (s *Session) DelUnit(sym string) ([]string, error) {
	s.mu.Lock()
	exists := s.engine.HasUnit(sym)
	removed, err := s.engine.DelUnit(sym)
	s.mu.Unlock()
	if err != nil && !exists && !s.isPrefixedAlias(sym) {
		err = notFoundError{err}
	}
	return removed, s.mutated(metrics.OpDelUnit, err, "unit deleted", "symbol", sym, "removed", removed)
}

// DelPrefix removes a prefix and the units using it, returning the removed
// unit symbols.
func (s *Session) DelPrefix(sym string) ([]string, error) {
	s.mu.Lock()
	exists := s.engine.HasPrefix(sym)
	removed, err := s.engine.DelPrefix(sym)
	s.mu.Unlock()
	if err != nil && !exists {
		err = notFoundError{err}
	}
	return removed, s.mutated(metrics.OpDelPrefix, err, "prefix deleted", "symbol", sym, "removed", removed)
}

// Dependents lists the units deleting sym would also remove.
func (s *Session) Dependents(sym string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Dependents(sym)
}

func (s *Session) isPrefixedAlias(sym string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix, _, err := s.engine.StripPrefix(sym)
	return err == nil && prefix != ""
}

// mutated records the outcome of a registry mutation.
func (s *Session) mutated(op string, err error, msg string, keyvals ...any) error {
	metrics.ObserveMutation(op, err)
	if err != nil {
		s.logger.Warn("registry mutation rejected", append([]any{"op", op, "err", err}, keyvals...)...)
		return err
	}
	s.logger.Info(msg, keyvals...)
	s.updateGauges()
	return nil
}

// UnitDefinition describes a unit, which may carry a prefix.
func (s *Session) UnitDefinition(sym string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, err := s.engine.UnitDefinition(sym)
	if err != nil {
		return "", notFoundError{err}
	}
	return def, nil
}

// PrefixDefinition describes a prefix.
func (s *Session) PrefixDefinition(sym string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, err := s.engine.PrefixDefinition(sym)
	if err != nil {
		return "", notFoundError{err}
	}
	return def, nil
}

// Units returns the registered unit symbols in sorted order.
func (s *Session) Units() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Units()
}

// Prefixes returns the registered prefix symbols in sorted order.
func (s *Session) Prefixes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Prefixes()
}

// Registry returns a snapshot of the current registry.
func (s *Session) Registry() *convert.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Registry()
}

// Replace installs reg after validating it. On error the session keeps its
// current registry.
func (s *Session) Replace(reg *convert.Registry) error {
	engine, err := convert.New(reg)
	if err != nil {
		return s.mutated(metrics.OpLoad, err, "")
	}
	s.mu.Lock()
	s.engine = engine
	s.mu.Unlock()
	return s.mutated(metrics.OpLoad, nil, "registry replaced", "units", len(engine.Units()), "prefixes", len(engine.Prefixes()))
}

// Load replaces the registry with the document at path.
func (s *Session) Load(path string) error {
	reg, err := parser.LoadFile(path)
	if err != nil {
		metrics.ObserveMutation(metrics.OpLoad, err)
		s.logger.Warn("failed to load registry", "path", path, "err", err)
		return err
	}
	return s.Replace(reg)
}

// Merge loads the document at path over the current registry. Definitions
// in the document replace existing ones. The write lock is held from
// snapshot to install, so concurrent mutations are not lost.
func (s *Session) Merge(path string) error {
	data, format, err := parser.ReadFile(path)
	if err == nil {
		s.mu.Lock()
		err = s.mergeLocked(path, data, format)
		s.mu.Unlock()
	}
	if err != nil {
		metrics.ObserveMutation(metrics.OpLoad, err)
		s.logger.Warn("failed to merge registry", "path", path, "err", err)
		return err
	}
	return s.mutated(metrics.OpLoad, nil, "registry merged", "path", path, "units", len(s.Units()), "prefixes", len(s.Prefixes()))
}

func (s *Session) mergeLocked(path string, data []byte, format parser.Format) error {
	reg, err := parser.Merge(s.engine.Registry(), data, format, true)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	engine, err := convert.New(reg)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.engine = engine
	return nil
}

// Save writes the registry to path in the format its extension selects.
func (s *Session) Save(path string) error {
	if err := parser.SaveFile(path, s.Registry()); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	s.logger.Info("registry saved", "path", path)
	return nil
}

// ExponentPolicy returns the policy evaluations run with.
func (s *Session) ExponentPolicy() expr.ExponentPolicy {
	return s.opts.ExponentPolicy
}

// History returns the recorded evaluations, oldest first.
func (s *Session) History() []Entry {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	out := make([]Entry, len(s.history))
	copy(out, s.history)
	return out
}

// ClearHistory drops every recorded evaluation.
func (s *Session) ClearHistory() {
	s.histMu.Lock()
	s.history = nil
	s.histMu.Unlock()
}

func (s *Session) record(e Entry) {
	if s.opts.HistorySize <= 0 {
		return
	}
	s.histMu.Lock()
	defer s.histMu.Unlock()
	s.history = append(s.history, e)
	if over := len(s.history) - s.opts.HistorySize; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
}

func (s *Session) updateGauges() {
	s.mu.RLock()
	units, prefixes := len(s.engine.Units()), len(s.engine.Prefixes())
	s.mu.RUnlock()
	metrics.SetRegistrySize(units, prefixes)
}
