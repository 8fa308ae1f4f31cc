package memory

import (
	"context"
	"sort"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
	"github.com/manufab-platform/kpi-core/pkg/storage"
)

type clientRepo struct {
	s  *Store
	sc *scope
}

func (r *clientRepo) Get(ctx context.Context, clientID string) (*domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clients[clientID]
	if !ok {
		return nil, apperrors.NotFound("Client", clientID)
	}
	cp := *c
	return &cp, nil
}

func (r *clientRepo) List(ctx context.Context) ([]*domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Client, 0, len(r.s.clients))
	for _, c := range r.s.clients {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out, nil
}

func (r *clientRepo) Create(ctx context.Context, c *domain.Client) (*domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.clients[c.ClientID]; exists {
		return nil, apperrors.Conflict("client_id", c.ClientID)
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	c.Active = true
	cp := *c
	r.s.clients[c.ClientID] = &cp
	r.sc.record(func() { delete(r.s.clients, c.ClientID) })
	return &cp, nil
}

func (r *clientRepo) Deactivate(ctx context.Context, clientID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clients[clientID]
	if !ok {
		return apperrors.NotFound("Client", clientID)
	}
	prevActive := c.Active
	c.Active = false
	c.UpdatedAt = time.Now()
	r.sc.record(func() { c.Active = prevActive })
	return nil
}

type userRepo struct {
	s  *Store
	sc *scope
}

func (r *userRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, apperrors.NotFound("User", userID)
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetByDisplayName(ctx context.Context, name string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.DisplayName == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("User", name)
}

func (r *userRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.users[u.UserID]; exists {
		return nil, apperrors.Conflict("user_id", u.UserID)
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	r.s.users[u.UserID] = &cp
	r.sc.record(func() { delete(r.s.users, u.UserID) })
	return &cp, nil
}

func (r *userRepo) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.users[u.UserID]
	if !ok {
		return nil, apperrors.NotFound("User", u.UserID)
	}
	prevCopy := *prev
	u.UpdatedAt = time.Now()
	cp := *u
	r.s.users[u.UserID] = &cp
	r.sc.record(func() { r.s.users[u.UserID] = &prevCopy })
	return &cp, nil
}

type productRepo struct {
	s  *Store
	sc *scope
}

func (r *productRepo) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.products {
		if existing.ClientID == p.ClientID && existing.Code == p.Code {
			return nil, apperrors.Conflict("code", p.Code)
		}
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	r.s.products[p.ProductID] = &cp
	r.sc.record(func() { delete(r.s.products, p.ProductID) })
	return &cp, nil
}

func (r *productRepo) Get(ctx context.Context, clientID, id string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok || p.ClientID != clientID {
		return nil, apperrors.NotFound("Product", id)
	}
	cp := *p
	return &cp, nil
}

func (r *productRepo) Update(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.products[p.ProductID]
	if !ok {
		return nil, apperrors.NotFound("Product", p.ProductID)
	}
	prevCopy := *prev
	p.UpdatedAt = time.Now()
	cp := *p
	r.s.products[p.ProductID] = &cp
	r.sc.record(func() { r.s.products[p.ProductID] = &prevCopy })
	return &cp, nil
}

func (r *productRepo) Delete(ctx context.Context, clientID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok || p.ClientID != clientID {
		return apperrors.NotFound("Product", id)
	}
	delete(r.s.products, id)
	r.sc.record(func() { r.s.products[id] = p })
	return nil
}

func (r *productRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.Product], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*domain.Product
	for _, p := range r.s.products {
		if p.ClientID == clientID {
			cp := *p
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ProductID < all[j].ProductID })
	return paginateProducts(all, page), nil
}

func paginateProducts(all []*domain.Product, page storage.Pagination) storage.ListResult[*domain.Product] {
	page = page.Normalize(200)
	total := int64(len(all))
	start := page.Offset
	if start > len(all) {
		start = len(all)
	}
	end := start + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return storage.NewListResult(all[start:end], total, page.Limit, page.Offset)
}

func (r *productRepo) Count(ctx context.Context, clientID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.products {
		if p.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

type shiftRepo struct {
	s  *Store
	sc *scope
}

func (r *shiftRepo) Create(ctx context.Context, sh *domain.Shift) (*domain.Shift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	sh.CreatedAt, sh.UpdatedAt = now, now
	cp := *sh
	r.s.shifts[sh.ShiftID] = &cp
	r.sc.record(func() { delete(r.s.shifts, sh.ShiftID) })
	return &cp, nil
}

func (r *shiftRepo) Get(ctx context.Context, clientID, id string) (*domain.Shift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.shifts[id]
	if !ok || sh.ClientID != clientID {
		return nil, apperrors.NotFound("Shift", id)
	}
	cp := *sh
	return &cp, nil
}

func (r *shiftRepo) Update(ctx context.Context, sh *domain.Shift) (*domain.Shift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.shifts[sh.ShiftID]; !ok {
		return nil, apperrors.NotFound("Shift", sh.ShiftID)
	}
	sh.UpdatedAt = time.Now()
	cp := *sh
	r.s.shifts[sh.ShiftID] = &cp
	return &cp, nil
}

func (r *shiftRepo) Delete(ctx context.Context, clientID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.shifts[id]
	if !ok || sh.ClientID != clientID {
		return apperrors.NotFound("Shift", id)
	}
	delete(r.s.shifts, id)
	return nil
}

func (r *shiftRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.Shift], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*domain.Shift
	for _, sh := range r.s.shifts {
		if sh.ClientID == clientID {
			cp := *sh
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ShiftID < all[j].ShiftID })
	page = page.Normalize(200)
	total := int64(len(all))
	start := min(page.Offset, len(all))
	end := min(start+page.Limit, len(all))
	return storage.NewListResult(all[start:end], total, page.Limit, page.Offset), nil
}

func (r *shiftRepo) Count(ctx context.Context, clientID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, sh := range r.s.shifts {
		if sh.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

type employeeRepo struct {
	s  *Store
	sc *scope
}

func (r *employeeRepo) Get(ctx context.Context, employeeID string) (*domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.employees[employeeID]
	if !ok {
		return nil, apperrors.NotFound("Employee", employeeID)
	}
	cp := *e
	return &cp, nil
}

func (r *employeeRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.Employee], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*domain.Employee
	for _, e := range r.s.employees {
		if e.ClientID != nil && *e.ClientID == clientID {
			cp := *e
			all = append(all, &cp)
			continue
		}
		if e.IsFloatingPool {
			for _, a := range r.s.assignments {
				if a.EmployeeID == e.EmployeeID && a.ClientID == clientID && a.ActiveAt(time.Now()) {
					cp := *e
					all = append(all, &cp)
					break
				}
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].EmployeeID < all[j].EmployeeID })
	page = page.Normalize(200)
	total := int64(len(all))
	start := min(page.Offset, len(all))
	end := min(start+page.Limit, len(all))
	return storage.NewListResult(all[start:end], total, page.Limit, page.Offset), nil
}

func (r *employeeRepo) Create(ctx context.Context, e *domain.Employee) (*domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now
	cp := *e
	r.s.employees[e.EmployeeID] = &cp
	r.sc.record(func() { delete(r.s.employees, e.EmployeeID) })
	return &cp, nil
}

func (r *employeeRepo) Update(ctx context.Context, e *domain.Employee) (*domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.employees[e.EmployeeID]; !ok {
		return nil, apperrors.NotFound("Employee", e.EmployeeID)
	}
	e.UpdatedAt = time.Now()
	cp := *e
	r.s.employees[e.EmployeeID] = &cp
	return &cp, nil
}

type assignmentRepo struct {
	s  *Store
	sc *scope
}

func (r *assignmentRepo) ActiveFor(ctx context.Context, employeeID, clientID string) (*domain.EmployeeAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	for _, a := range r.s.assignments {
		if a.EmployeeID == employeeID && a.ClientID == clientID && a.ActiveAt(now) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("EmployeeAssignment", employeeID+"/"+clientID)
}

func (r *assignmentRepo) Create(ctx context.Context, a *domain.EmployeeAssignment) (*domain.EmployeeAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	r.s.assignments[a.AssignmentID] = &cp
	r.sc.record(func() { delete(r.s.assignments, a.AssignmentID) })
	return &cp, nil
}

type defectTypeRepo struct {
	s  *Store
	sc *scope
}

func (r *defectTypeRepo) Get(ctx context.Context, id string) (*domain.DefectType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.defectTypes[id]
	if !ok {
		return nil, apperrors.NotFound("DefectType", id)
	}
	cp := *d
	return &cp, nil
}

func (r *defectTypeRepo) List(ctx context.Context, clientID string) ([]*domain.DefectType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.DefectType
	for _, d := range r.s.defectTypes {
		if d.ClientID == nil || *d.ClientID == clientID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DefectTypeID < out[j].DefectTypeID })
	return out, nil
}

func (r *defectTypeRepo) Create(ctx context.Context, d *domain.DefectType) (*domain.DefectType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	cp := *d
	r.s.defectTypes[d.DefectTypeID] = &cp
	r.sc.record(func() { delete(r.s.defectTypes, d.DefectTypeID) })
	return &cp, nil
}

type partOpportunitiesRepo struct {
	s  *Store
	sc *scope
}

func key(clientID, productID string) string { return clientID + "/" + productID }

func (r *partOpportunitiesRepo) Get(ctx context.Context, clientID, productID string) (*domain.PartOpportunities, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.partOpportunities[key(clientID, productID)]
	if !ok {
		return nil, apperrors.NotFound("PartOpportunities", productID)
	}
	cp := *p
	return &cp, nil
}

func (r *partOpportunitiesRepo) Upsert(ctx context.Context, p *domain.PartOpportunities) (*domain.PartOpportunities, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := key(p.ClientID, p.ProductID)
	prev, existed := r.s.partOpportunities[k]
	now := time.Now()
	if existed {
		p.CreatedAt = prev.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	cp := *p
	r.s.partOpportunities[k] = &cp
	if existed {
		prevCopy := *prev
		r.sc.record(func() { r.s.partOpportunities[k] = &prevCopy })
	} else {
		r.sc.record(func() { delete(r.s.partOpportunities, k) })
	}
	return &cp, nil
}
