package www

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"gasflow/lifecycle"
	"gasflow/store"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"timeAgo": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			d := time.Since(t)
			switch {
			case d < time.Minute:
				return "just now"
			case d < time.Hour:
				m := int(d.Minutes())
				if m == 1 {
					return "1 minute ago"
				}
				return fmt.Sprintf("%d minutes ago", m)
			case d < 24*time.Hour:
				h := int(d.Hours())
				if h == 1 {
					return "1 hour ago"
				}
				return fmt.Sprintf("%d hours ago", h)
			default:
				days := int(d.Hours() / 24)
				if days == 1 {
					return "1 day ago"
				}
				return fmt.Sprintf("%d days ago", days)
			}
		},
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Format("2006-01-02 15:04")
		},
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Format(dateLayout)
		},
		"formatDatePtr": func(t *time.Time) string {
			if t == nil {
				return "-"
			}
			return t.Format(dateLayout)
		},
		"inputDate": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return ""
			}
			return t.Format(dateLayout)
		},
		"money": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		"nullMoney": func(d decimal.NullDecimal) string {
			if !d.Valid {
				return "-"
			}
			return d.Decimal.StringFixed(2)
		},
		"statusColor": func(status string) string {
			switch status {
			case "pending", "planned":
				return "bg-yellow-100 text-yellow-800"
			case "confirmed":
				return "bg-blue-100 text-blue-800"
			case "in_progress", "in_delivery", "in_transit":
				return "bg-indigo-100 text-indigo-800"
			case "delivered", "completed", "passed", "active", "paid":
				return "bg-green-100 text-green-800"
			case "failed", "needs_repair", "damaged", "unpaid":
				return "bg-red-100 text-red-800"
			case "cancelled", "inactive", "retired":
				return "bg-gray-100 text-gray-800"
			default:
				return "bg-gray-100 text-gray-800"
			}
		},
		"categoryLabel": func(category string) string {
			switch category {
			case lifecycle.CategoryCustomer:
				return "At customer"
			case lifecycle.CategoryDepot:
				return "In depot"
			case lifecycle.CategoryMaintenance:
				return "In maintenance"
			case lifecycle.CategoryInTransit:
				return "In transit"
			default:
				return "Unknown"
			}
		},
		"canDelete": func(status string) bool {
			return status == "pending" || status == "planned" || status == "cancelled"
		},
		"editable": func(status string) bool {
			return status != "completed" && status != "cancelled"
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"join":  strings.Join,
		"add": func(a, b int) int {
			return a + b
		},
		"list": func(items ...string) []string {
			return items
		},
		"dict": func(kv ...any) map[string]any {
			m := make(map[string]any, len(kv)/2)
			for i := 0; i+1 < len(kv); i += 2 {
				key, _ := kv[i].(string)
				m[key] = kv[i+1]
			}
			return m
		},
		"deref": func(p *int64) int64 {
			if p == nil {
				return 0
			}
			return *p
		},
	}
}

// --- request parsing ---

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func queryInt64(r *http.Request, key string) int64 {
	n, _ := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	return n
}

func queryDate(r *http.Request, key string) *time.Time {
	return parseDate(r.URL.Query().Get(key))
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{dateLayout, "2006-01-02T15:04", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t
		}
	}
	return nil
}

func formInt64(r *http.Request, key string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue(key)), 10, 64)
	return n
}

func formInt64Ptr(r *http.Request, key string) *int64 {
	if n := formInt64(r, key); n > 0 {
		return &n
	}
	return nil
}

func formDate(r *http.Request, key string) time.Time {
	if t := parseDate(r.FormValue(key)); t != nil {
		return *t
	}
	return time.Time{}
}

func formDecimal(r *http.Request, key string) (*decimal.Decimal, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
	if err != nil {
		return nil, lifecycle.Invalid(key, "not a number")
	}
	return &d, nil
}

// formLocation reads a "<kind>:<id>" select value such as "depot:3".
func formLocation(r *http.Request, key string) *store.LocationRef {
	kind, id, ok := strings.Cut(r.FormValue(key), ":")
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil
	}
	ref := store.LocationRef{Kind: store.LocationKind(kind), ID: n}
	if !ref.Valid() {
		return nil
	}
	return &ref
}

// errorMessage is the flash text for a failed form submission.
func errorMessage(err error) string {
	if ve, ok := lifecycle.AsValidation(err); ok {
		return ve.Error()
	}
	if lifecycle.IsConflict(err) {
		msg := err.Error()
		return strings.TrimPrefix(msg, lifecycle.ErrStateConflict.Error()+": ")
	}
	if store.IsNotFound(err) {
		return "record not found"
	}
	return "unexpected error, see server log"
}
