package memory

import (
	"context"
	"sort"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
	"github.com/manufab-platform/kpi-core/pkg/storage"
)

type productionEntryRepo struct {
	s  *Store
	sc *scope
}

func (r *productionEntryRepo) Create(ctx context.Context, p *domain.ProductionEntry) (*domain.ProductionEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	r.s.productionEntries[p.EntryID] = &cp
	r.sc.record(func() { delete(r.s.productionEntries, p.EntryID) })
	return &cp, nil
}

func (r *productionEntryRepo) Get(ctx context.Context, clientID, id string) (*domain.ProductionEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.productionEntries[id]
	if !ok || p.ClientID != clientID {
		return nil, apperrors.NotFound("ProductionEntry", id)
	}
	cp := *p
	return &cp, nil
}

func (r *productionEntryRepo) Update(ctx context.Context, p *domain.ProductionEntry) (*domain.ProductionEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.productionEntries[p.EntryID]; !ok {
		return nil, apperrors.NotFound("ProductionEntry", p.EntryID)
	}
	p.UpdatedAt = time.Now()
	cp := *p
	r.s.productionEntries[p.EntryID] = &cp
	return &cp, nil
}

func (r *productionEntryRepo) Delete(ctx context.Context, clientID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.productionEntries[id]
	if !ok || p.ClientID != clientID {
		return apperrors.NotFound("ProductionEntry", id)
	}
	delete(r.s.productionEntries, id)
	return nil
}

func (r *productionEntryRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.ProductionEntry], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*domain.ProductionEntry
	for _, p := range r.s.productionEntries {
		if p.ClientID == clientID {
			cp := *p
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].EntryID < all[j].EntryID })
	page = page.Normalize(1000)
	total := int64(len(all))
	start := min(page.Offset, len(all))
	end := min(start+page.Limit, len(all))
	return storage.NewListResult(all[start:end], total, page.Limit, page.Offset), nil
}

func (r *productionEntryRepo) Count(ctx context.Context, clientID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.productionEntries {
		if p.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func (r *productionEntryRepo) ListInWindow(ctx context.Context, clientID string, from, to time.Time) ([]*domain.ProductionEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.ProductionEntry
	for _, p := range r.s.productionEntries {
		if p.ClientID != clientID {
			continue
		}
		if p.ProductionDate.Before(from) || p.ProductionDate.After(to) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	return out, nil
}

type downtimeEntryRepo struct {
	s  *Store
	sc *scope
}

func (r *downtimeEntryRepo) Create(ctx context.Context, d *domain.DowntimeEntry) (*domain.DowntimeEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	cp := *d
	r.s.downtimeEntries[d.EntryID] = &cp
	r.sc.record(func() { delete(r.s.downtimeEntries, d.EntryID) })
	return &cp, nil
}

func (r *downtimeEntryRepo) Get(ctx context.Context, clientID, id string) (*domain.DowntimeEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.downtimeEntries[id]
	if !ok || d.ClientID != clientID {
		return nil, apperrors.NotFound("DowntimeEntry", id)
	}
	cp := *d
	return &cp, nil
}

func (r *downtimeEntryRepo) Update(ctx context.Context, d *domain.DowntimeEntry) (*domain.DowntimeEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.downtimeEntries[d.EntryID]; !ok {
		return nil, apperrors.NotFound("DowntimeEntry", d.EntryID)
	}
	d.UpdatedAt = time.Now()
	cp := *d
	r.s.downtimeEntries[d.EntryID] = &cp
	return &cp, nil
}

func (r *downtimeEntryRepo) Delete(ctx context.Context, clientID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.downtimeEntries[id]
	if !ok || d.ClientID != clientID {
		return apperrors.NotFound("DowntimeEntry", id)
	}
	delete(r.s.downtimeEntries, id)
	return nil
}

func (r *downtimeEntryRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.DowntimeEntry], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*domain.DowntimeEntry
	for _, d := range r.s.downtimeEntries {
		if d.ClientID == clientID {
			cp := *d
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].EntryID < all[j].EntryID })
	page = page.Normalize(1000)
	total := int64(len(all))
	start := min(page.Offset, len(all))
	end := min(start+page.Limit, len(all))
	return storage.NewListResult(all[start:end], total, page.Limit, page.Offset), nil
}

func (r *downtimeEntryRepo) Count(ctx context.Context, clientID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, d := range r.s.downtimeEntries {
		if d.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

type attendanceEntryRepo struct {
	s  *Store
	sc *scope
}

func (r *attendanceEntryRepo) Create(ctx context.Context, a *domain.AttendanceEntry) (*domain.AttendanceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.attendanceEntries {
		if existing.EmployeeID == a.EmployeeID && existing.ShiftID == a.ShiftID &&
			sameDay(existing.AttendanceDate, a.AttendanceDate) {
			return nil, apperrors.Conflict("employee_id,attendance_date,shift_id", a.EmployeeID)
		}
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	r.s.attendanceEntries[a.EntryID] = &cp
	r.sc.record(func() { delete(r.s.attendanceEntries, a.EntryID) })
	return &cp, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (r *attendanceEntryRepo) Get(ctx context.Context, clientID, id string) (*domain.AttendanceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.attendanceEntries[id]
	if !ok || a.ClientID != clientID {
		return nil, apperrors.NotFound("AttendanceEntry", id)
	}
	cp := *a
	return &cp, nil
}

func (r *attendanceEntryRepo) Update(ctx context.Context, a *domain.AttendanceEntry) (*domain.AttendanceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.attendanceEntries[a.EntryID]; !ok {
		return nil, apperrors.NotFound("AttendanceEntry", a.EntryID)
	}
	a.UpdatedAt = time.Now()
	cp := *a
	r.s.attendanceEntries[a.EntryID] = &cp
	return &cp, nil
}

func (r *attendanceEntryRepo) Delete(ctx context.Context, clientID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.attendanceEntries[id]
	if !ok || a.ClientID != clientID {
		return apperrors.NotFound("AttendanceEntry", id)
	}
	delete(r.s.attendanceEntries, id)
	return nil
}

func (r *attendanceEntryRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.AttendanceEntry], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*domain.AttendanceEntry
	for _, a := range r.s.attendanceEntries {
		if a.ClientID == clientID {
			cp := *a
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].EntryID < all[j].EntryID })
	page = page.Normalize(1000)
	total := int64(len(all))
	start := min(page.Offset, len(all))
	end := min(start+page.Limit, len(all))
	return storage.NewListResult(all[start:end], total, page.Limit, page.Offset), nil
}

func (r *attendanceEntryRepo) Count(ctx context.Context, clientID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, a := range r.s.attendanceEntries {
		if a.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func (r *attendanceEntryRepo) FindDuplicate(ctx context.Context, clientID, employeeID, shiftID string, date time.Time) (*domain.AttendanceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.attendanceEntries {
		if a.ClientID == clientID && a.EmployeeID == employeeID && a.ShiftID == shiftID && sameDay(a.AttendanceDate, date) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("AttendanceEntry", employeeID)
}

type qualityEntryRepo struct {
	s  *Store
	sc *scope
}

func (r *qualityEntryRepo) Create(ctx context.Context, q *domain.QualityEntry) (*domain.QualityEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	q.CreatedAt, q.UpdatedAt = now, now
	cp := *q
	r.s.qualityEntries[q.EntryID] = &cp
	r.sc.record(func() { delete(r.s.qualityEntries, q.EntryID) })
	return &cp, nil
}

func (r *qualityEntryRepo) Get(ctx context.Context, clientID, id string) (*domain.QualityEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.qualityEntries[id]
	if !ok || q.ClientID != clientID {
		return nil, apperrors.NotFound("QualityEntry", id)
	}
	cp := *q
	return &cp, nil
}

func (r *qualityEntryRepo) Update(ctx context.Context, q *domain.QualityEntry) (*domain.QualityEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.qualityEntries[q.EntryID]; !ok {
		return nil, apperrors.NotFound("QualityEntry", q.EntryID)
	}
	q.UpdatedAt = time.Now()
	cp := *q
	r.s.qualityEntries[q.EntryID] = &cp
	return &cp, nil
}

func (r *qualityEntryRepo) Delete(ctx context.Context, clientID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.qualityEntries[id]
	if !ok || q.ClientID != clientID {
		return apperrors.NotFound("QualityEntry", id)
	}
	delete(r.s.qualityEntries, id)
	return nil
}

func (r *qualityEntryRepo) List(ctx context.Context, clientID string, page storage.Pagination) (storage.ListResult[*domain.QualityEntry], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*domain.QualityEntry
	for _, q := range r.s.qualityEntries {
		if q.ClientID == clientID {
			cp := *q
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].EntryID < all[j].EntryID })
	page = page.Normalize(1000)
	total := int64(len(all))
	start := min(page.Offset, len(all))
	end := min(start+page.Limit, len(all))
	return storage.NewListResult(all[start:end], total, page.Limit, page.Offset), nil
}

func (r *qualityEntryRepo) Count(ctx context.Context, clientID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, q := range r.s.qualityEntries {
		if q.ClientID == clientID {
			n++
		}
	}
	return n, nil
}
