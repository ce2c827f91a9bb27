package catalog

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/hyprcat/hyprcat/internal/apierr"
	"github.com/hyprcat/hyprcat/internal/ld"
	"github.com/hyprcat/hyprcat/internal/store"
)

// MaxPageSize bounds the page size search will honor; larger requests
// are clamped down to it.
const MaxPageSize = 50

const DefaultPageSize = 10

// Service wraps a resource store with the catalog's register/search
// operations.
type Service struct {
	store store.Store
}

// New returns a catalog Service over s. Call Seed separately at
// startup to populate the demonstration mesh.
func New(s store.Store) *Service {
	return &Service{store: s}
}

// Register validates and persists resource, then appends a reference
// to it under the root catalog's member list.
func (svc *Service) Register(ctx context.Context, resource map[string]any) error {
	id, _ := resource["id"].(string)
	if id == "" {
		return apierr.New(apierr.InvalidRequest, "Missing id", "resource id is required")
	}
	if len(ld.TypesOf(resource)) == 0 {
		return apierr.New(apierr.InvalidRequest, "Missing type", "resource type is required")
	}

	if err := svc.store.Put(ctx, id, resource); err != nil {
		return apierr.Wrap(apierr.InternalError, "Register failed", "register resource", err)
	}

	cat, err := svc.store.Get(ctx, catalogID)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, "Register failed", "load catalog collection", err)
	}
	members, _ := cat["member"].([]any)
	members = append(members, map[string]any{"id": id})
	cat["member"] = members
	cat["totalItems"] = len(members)
	if err := svc.store.Put(ctx, catalogID, cat); err != nil {
		return apierr.Wrap(apierr.InternalError, "Register failed", "update catalog collection", err)
	}
	return nil
}

// SearchQuery collects the filters and pagination cursor for Search.
type SearchQuery struct {
	Query    string
	Type     string
	Domain   string
	Page     int
	PageSize int
}

// Search filters every resource in the store by the given query's type,
// domain, and substring criteria, then returns a paginated, ascending-id
// ordered view with first/previous/next affordances.
func (svc *Service) Search(ctx context.Context, q SearchQuery) (ld.CollectionView, error) {
	ids, err := svc.store.List(ctx)
	if err != nil {
		return ld.CollectionView{}, apierr.Wrap(apierr.InternalError, "Search failed", "list resources", err)
	}
	sort.Strings(ids)

	var matched []map[string]any
	for _, id := range ids {
		resource, err := svc.store.Get(ctx, id)
		if err != nil {
			continue
		}
		if matches(resource, q) {
			matched = append(matched, resource)
		}
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total := len(matched)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	members := make([]any, 0, end-start)
	for _, r := range matched[start:end] {
		members = append(members, r)
	}

	view := ld.CollectionView{
		Member:     members,
		TotalItems: total,
		First:      searchLink(q, 1, pageSize),
	}
	if page > 1 {
		view.Previous = searchLink(q, page-1, pageSize)
	}
	if end < total {
		view.Next = searchLink(q, page+1, pageSize)
	}
	return view, nil
}

func matches(resource map[string]any, q SearchQuery) bool {
	if q.Type != "" && !ld.IsOfType(resource, q.Type) {
		return false
	}
	if q.Domain != "" {
		domain, _ := resource["domain"].(string)
		if domain != q.Domain {
			return false
		}
	}
	if q.Query != "" {
		needle := strings.ToLower(q.Query)
		title, _ := resource["title"].(string)
		description, _ := resource["description"].(string)
		haystack := strings.ToLower(title + " " + description)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func searchLink(q SearchQuery, page, pageSize int) string {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	if q.Domain != "" {
		params.Set("domain", q.Domain)
	}
	return catalogID + "?" + params.Encode()
}
