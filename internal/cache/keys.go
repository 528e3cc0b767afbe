package cache

import (
	"strings"
	"time"
)

// DefaultPrefix is the global key prefix.
const DefaultPrefix = "hrscore"

// Namespace names one cached view.
type Namespace string

const (
	NamespaceScore     Namespace = "score"
	NamespaceTrend     Namespace = "trend"
	NamespaceSkillGap  Namespace = "skillgap"
	NamespaceRecommend Namespace = "recommend"
	NamespaceDashboard Namespace = "dashboard"
	// NamespaceExplain holds LLM-enriched score explanations written by the
	// explanation layer. This module only invalidates it.
	NamespaceExplain Namespace = "explain"
)

// TTLs per namespace.
const (
	ViewTTL      = 300 * time.Second
	DashboardTTL = 60 * time.Second
	EnrichedTTL  = 600 * time.Second
)

// dashboardDiscriminator is the single key of the per-org dashboard view.
const dashboardDiscriminator = "summary"

// TTL returns the expiry of entries in the namespace.
func (n Namespace) TTL() time.Duration {
	switch n {
	case NamespaceDashboard:
		return DashboardTTL
	case NamespaceExplain:
		return EnrichedTTL
	default:
		return ViewTTL
	}
}

// employeeNamespaces are the views derived from one employee's tasks and history.
var employeeNamespaces = []Namespace{
	NamespaceScore,
	NamespaceTrend,
	NamespaceSkillGap,
	NamespaceExplain,
}

// Keys builds cache keys of the form {prefix}:{orgID}:{namespace}:{discriminator}.
// The org segment keeps tenants apart even for colliding IDs.
type Keys struct {
	prefix string
}

// NewKeys creates a key builder. An empty prefix falls back to DefaultPrefix.
func NewKeys(prefix string) Keys {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keys{prefix: prefix}
}

// Key returns the key of one view.
func (k Keys) Key(orgID string, ns Namespace, discriminator string) string {
	return k.prefix + ":" + orgID + ":" + string(ns) + ":" + discriminator
}

// Score returns the key of an employee's score view.
func (k Keys) Score(orgID, employeeID string) string {
	return k.Key(orgID, NamespaceScore, employeeID)
}

// Trend returns the key of an employee's trend view.
func (k Keys) Trend(orgID, employeeID string) string {
	return k.Key(orgID, NamespaceTrend, employeeID)
}

// SkillGap returns the key of an employee's skill-gap view.
func (k Keys) SkillGap(orgID, employeeID string) string {
	return k.Key(orgID, NamespaceSkillGap, employeeID)
}

// Recommend returns the key of a task's recommendation view.
func (k Keys) Recommend(orgID, taskID string) string {
	return k.Key(orgID, NamespaceRecommend, taskID)
}

// Dashboard returns the key of an org's dashboard view.
func (k Keys) Dashboard(orgID string) string {
	return k.Key(orgID, NamespaceDashboard, dashboardDiscriminator)
}

// Employee returns every key derived from one employee.
func (k Keys) Employee(orgID, employeeID string) []string {
	keys := make([]string, 0, len(employeeNamespaces))
	for _, ns := range employeeNamespaces {
		keys = append(keys, k.Key(orgID, ns, employeeID))
	}
	return keys
}
