// Package policy is the reference implementation of config.PolicyEvaluator:
// an ordered allow/deny rule list matched by path glob, backed by a
// decision cache so repeated checks against a hot path don't re-run the
// glob list on every call.
//
// Glob compilation follows pkg/vproj/builder.go's and projects.go's
// `ignore := make([]glob.Glob, 0); glob.Compile(p)` idiom for matching
// project file patterns, applied here to access-control path patterns
// instead of build-ignore patterns. The decision cache is
// github.com/hashicorp/golang-lru/v2, the one dependency pulled in
// purely for this self-synchronized "LRU of decisions" shape since no
// complete example repo in the pack ships a generic LRU of its own.
package policy

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/gobwas/glob"
)

// Rule grants or denies an action when both ActionGlob and PathGlob
// match. Rules are evaluated in order; the first match wins.
type Rule struct {
	ActionGlob string
	PathGlob   string
	Allow      bool
}

type compiledRule struct {
	action glob.Glob
	path   glob.Glob
	allow  bool
}

// Evaluator implements config.PolicyEvaluator over a compiled rule list.
type Evaluator struct {
	rules        []compiledRule
	defaultAllow bool
	cache        *lru.Cache[string, bool]
}

// New compiles rules and builds an Evaluator. defaultAllow is the
// decision returned when no rule matches. cacheSize <= 0 disables
// caching.
func New(rules []Rule, defaultAllow bool, cacheSize int) (*Evaluator, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		ag, err := glob.Compile(r.ActionGlob)
		if err != nil {
			return nil, fmt.Errorf("policy: compiling action glob %q: %w", r.ActionGlob, err)
		}
		pg, err := glob.Compile(r.PathGlob, '/')
		if err != nil {
			return nil, fmt.Errorf("policy: compiling path glob %q: %w", r.PathGlob, err)
		}
		compiled = append(compiled, compiledRule{action: ag, path: pg, allow: r.Allow})
	}

	e := &Evaluator{rules: compiled, defaultAllow: defaultAllow}
	if cacheSize > 0 {
		c, err := lru.New[string, bool](cacheSize)
		if err != nil {
			return nil, err
		}
		e.cache = c
	}
	return e, nil
}

// Evaluate implements config.PolicyEvaluator.
func (e *Evaluator) Evaluate(action, path string, _ map[string]string) (bool, error) {
	key := action + "\x00" + path
	if e.cache != nil {
		if allow, ok := e.cache.Get(key); ok {
			return allow, nil
		}
	}

	allow := e.defaultAllow
	for _, r := range e.rules {
		if r.action.Match(action) && r.path.Match(path) {
			allow = r.allow
			break
		}
	}

	if e.cache != nil {
		e.cache.Add(key, allow)
	}
	return allow, nil
}

// Invalidate drops every cached decision whose path has pathPrefix,
// letting callers keep the cache honest after a rule-set reload scoped
// to part of the tree.
func (e *Evaluator) Invalidate(pathPrefix string) {
	if e.cache == nil {
		return
	}
	for _, key := range e.cache.Keys() {
		parts := strings.SplitN(key, "\x00", 2)
		if len(parts) == 2 && strings.HasPrefix(parts[1], pathPrefix) {
			e.cache.Remove(key)
		}
	}
}
