// Package security validates compiled queries before execution. The primary
// defense is structural: filter values are bound parameters and never reach
// clause text. The denylist scan here is a defense-in-depth backstop.
package security

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/Mahaan-Amr/servaan-sub004/internal/compiler"
	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
	"github.com/Mahaan-Amr/servaan-sub004/internal/observability"
)

// denied lists schema-mutating and procedural constructs that must never
// appear in a report query.
var denied = []string{
	"drop", "alter", "create", "insert", "update", "delete",
	"truncate", "grant", "revoke", "exec", "execute", "declare",
	"procedure", "pragma", "attach", "vacuum",
}

// deniedPattern matches denylisted words on word boundaries, so column names
// like created_at or updated_by do not trip the scan.
var deniedPattern = func() *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(` + strings.Join(denied, "|") + `)\b`)
}()

// Gate validates compiled queries. Stateless and safe for concurrent use.
type Gate struct {
	logger *slog.Logger
}

// NewGate creates a Gate. Rejections are logged as security events.
func NewGate(logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{logger: logger.With("component", "security-gate")}
}

// Validate scans the assembled SQL and the raw filter values for denylisted
// constructs. Violations are fatal and never retried.
func (g *Gate) Validate(q *compiler.CompiledQuery) error {
	if q == nil || strings.TrimSpace(q.SQL) == "" {
		return domain.ErrSecurityViolation("empty compiled query")
	}

	if m := deniedPattern.FindString(q.SQL); m != "" {
		g.logger.Warn("security event: denylisted construct in compiled query",
			"construct", strings.ToLower(m), "fingerprint", q.Fingerprint)
		observability.SecurityRejectionsTotal.Inc()
		return domain.ErrSecurityViolation("query contains forbidden construct %q", strings.ToLower(m))
	}

	for _, v := range q.RawFilterValues() {
		if m := deniedPattern.FindString(v); m != "" {
			g.logger.Warn("security event: denylisted construct in filter value",
				"construct", strings.ToLower(m), "fingerprint", q.Fingerprint)
			observability.SecurityRejectionsTotal.Inc()
			return domain.ErrSecurityViolation("filter value contains forbidden construct %q", strings.ToLower(m))
		}
	}
	return nil
}
