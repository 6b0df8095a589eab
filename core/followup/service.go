package followup

import (
	"context"
	"net/mail"
	"sort"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/attendance"
	"github.com/trezcool/kanisa/core/calendar"
	"github.com/trezcool/kanisa/core/person"
)

type (
	IgnoreRepository interface {
		// ListIgnores returns every ignore entry, expired ones included.
		ListIgnores(ctx context.Context) ([]IgnoreEntry, error)
		GetIgnore(ctx context.Context, personID string) (IgnoreEntry, error)
		// CreateIgnore fails with ErrIgnoreExists when the person already has an entry.
		CreateIgnore(ctx context.Context, entry IgnoreEntry) (IgnoreEntry, error)
		// DeleteIgnore removes the person's entry, if any.
		DeleteIgnore(ctx context.Context, personID string) error
	}

	// Observer is notified of every computed report.
	Observer interface {
		ObserveFollowUp(t person.Type, report Report, took time.Duration)
	}

	Service struct {
		people     person.Repository
		ledger     *attendance.Ledger
		ignores    IgnoreRepository
		cal        *calendar.Calendar
		conf       core.FollowUpConfig
		validate   *validator.Validate
		translator ut.Translator
		mailSvc    core.EmailService
		observers  []Observer
	}
)

func NewService(
	people person.Repository,
	records attendance.Repository,
	ignores IgnoreRepository,
	cal *calendar.Calendar,
	conf *core.Config,
	validate *validator.Validate,
	translator ut.Translator,
	mailSvc core.EmailService,
	observers ...Observer,
) *Service {
	return &Service{
		people:     people,
		ledger:     attendance.NewLedger(records),
		ignores:    ignores,
		cal:        cal,
		conf:       conf.FollowUp,
		validate:   validate,
		translator: translator,
		mailSvc:    mailSvc,
		observers:  observers,
	}
}

func (svc *Service) Calendar() *calendar.Calendar { return svc.cal }
func (svc *Service) Ledger() *attendance.Ledger    { return svc.ledger }

// DefaultOptions returns the configured lookback and threshold of a population, as of today.
func (svc *Service) DefaultOptions(t person.Type) Options {
	threshold := svc.conf.ChildThreshold
	if t == person.TypeServant {
		threshold = svc.conf.ServantThreshold
	}
	return Options{
		LookbackWeeks:  svc.conf.LookbackWeeks,
		MinConsecutive: threshold,
		ReferenceDate:  svc.cal.Today(),
	}
}

func (svc *Service) validateOptions(t person.Type, opts Options) error {
	if !t.Valid() {
		return core.NewValidationError(person.ErrInvalidType, core.FieldError{Field: "personType", Error: person.ErrInvalidType.Error()})
	}
	return core.TranslateValidationErrors(svc.validate.Struct(opts), svc.translator)
}

// Compute builds the follow-up list of one population.
// People with an active ignore entry are left out before grouping, so they never count in the summary.
func (svc *Service) Compute(ctx context.Context, t person.Type, opts Options) (Report, error) {
	start := time.Now()
	if err := svc.validateOptions(t, opts); err != nil {
		return Report{}, err
	}
	if opts.ReferenceDate.IsZero() {
		opts.ReferenceDate = svc.cal.Today()
	}

	weeks, err := calendar.ServiceWeeksBack(opts.ReferenceDate, opts.LookbackWeeks)
	if err != nil {
		return Report{}, err
	}

	people, err := svc.people.ListActivePeople(ctx, t)
	if err != nil {
		return Report{}, err
	}
	ignores, err := svc.ListIgnores(ctx)
	if err != nil {
		return Report{}, err
	}
	people = FilterIgnored(people, ignores)

	sheet, err := svc.ledger.Load(ctx, t, weeks)
	if err != nil {
		return Report{}, err
	}
	lastPresent, err := svc.ledger.LastPresentDates(ctx, t, weeks)
	if err != nil {
		return Report{}, err
	}

	byCount := make(map[int][]Member)
	for _, p := range people {
		statuses := sheet.WeeklyStatus(p.ID)
		absences := ConsecutiveAbsences(attendance.Presence(statuses))
		if absences < opts.MinConsecutive {
			continue
		}
		mbr := newMember(p, statuses[:absences])
		if date, ok := lastPresent[p.ID]; ok {
			date := date
			mbr.LastAttendance = &date
		}
		byCount[absences] = append(byCount[absences], mbr)
	}

	report := newReport(t, byCount)
	report.ServiceWeek = weeks.First()
	report.LookbackWeeks = weeks.Len()

	took := time.Since(start)
	for _, obs := range svc.observers {
		obs.ObserveFollowUp(t, report, took)
	}
	return report, nil
}

// newMember copies the person's contact details. absentRun holds the weeks of the current absence,
// most recent first; notes come from the latest record in it that has some.
func newMember(p person.Person, absentRun []attendance.WeekStatus) Member {
	mbr := Member{
		ID:         p.ID,
		Name:       p.Name,
		Phone:      p.Phone,
		ParentName: p.ParentName,
	}
	if p.Class != nil {
		cls := *p.Class
		mbr.Class = &cls
	}
	for _, st := range absentRun {
		if st.Record != nil && st.Record.Notes.Valid && st.Record.Notes.String != "" {
			mbr.Notes = st.Record.Notes.String
			break
		}
	}
	return mbr
}

func newReport(t person.Type, byCount map[int][]Member) Report {
	report := Report{
		Summary: Summary{PersonType: t},
		Groups:  make([]Group, 0, len(byCount)),
	}
	for count, members := range byCount {
		sort.SliceStable(members, func(i, j int) bool {
			if members[i].Name != members[j].Name {
				return members[i].Name < members[j].Name
			}
			return members[i].ID < members[j].ID
		})
		report.Groups = append(report.Groups, Group{
			ConsecutiveWeeks: count,
			Count:            len(members),
			PersonType:       t,
			Members:          members,
		})
		report.Summary.Total += len(members)
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		return report.Groups[i].ConsecutiveWeeks > report.Groups[j].ConsecutiveWeeks
	})
	report.Summary.GroupsCount = len(report.Groups)
	return report
}

// FilterIgnored drops the people covered by one of ignores. Callers pass active entries only.
func FilterIgnored(people []person.Person, ignores []IgnoreEntry) []person.Person {
	if len(ignores) == 0 {
		return people
	}
	ignored := make(map[string]struct{}, len(ignores))
	for _, entry := range ignores {
		ignored[entry.PersonID] = struct{}{}
	}
	kept := make([]person.Person, 0, len(people))
	for _, p := range people {
		if _, ok := ignored[p.ID]; !ok {
			kept = append(kept, p)
		}
	}
	return kept
}

// ListIgnores returns the active ignore entries.
func (svc *Service) ListIgnores(ctx context.Context) ([]IgnoreEntry, error) {
	entries, err := svc.ignores.ListIgnores(ctx)
	if err != nil {
		return nil, err
	}
	now := svc.cal.Now()
	active := make([]IgnoreEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsActive(now) {
			active = append(active, entry)
		}
	}
	return active, nil
}

// AddIgnore excludes a person from follow-up lists on behalf of staffID.
// It fails with a ConflictError when the person is already ignored. An expired entry is replaced.
func (svc *Service) AddIgnore(ctx context.Context, staffID string, ni NewIgnore) (IgnoreEntry, error) {
	ni.PersonID = core.CleanString(ni.PersonID)
	if err := core.TranslateValidationErrors(svc.validate.Struct(ni), svc.translator); err != nil {
		return IgnoreEntry{}, err
	}
	if _, err := svc.people.GetPerson(ctx, ni.PersonID); err != nil {
		return IgnoreEntry{}, err
	}

	now := svc.cal.Now()
	if ni.ExpiresAt.Valid && !ni.ExpiresAt.Time.After(now) {
		return IgnoreEntry{}, core.NewValidationError(nil, core.FieldError{Field: "expiresAt", Error: "expiresAt must be in the future"})
	}
	entry := IgnoreEntry{
		ID:        uuid.New().String(),
		PersonID:  ni.PersonID,
		IgnoredBy: staffID,
		CreatedAt: now.UTC(),
		ExpiresAt: ni.ExpiresAt,
	}
	created, err := svc.ignores.CreateIgnore(ctx, entry)
	if errors.Is(err, ErrIgnoreExists) {
		existing, gErr := svc.ignores.GetIgnore(ctx, ni.PersonID)
		if gErr != nil || existing.IsActive(now) {
			return IgnoreEntry{}, core.NewConflictError(ErrIgnoreExists)
		}
		if err = svc.ignores.DeleteIgnore(ctx, ni.PersonID); err != nil {
			return IgnoreEntry{}, err
		}
		created, err = svc.ignores.CreateIgnore(ctx, entry)
		if errors.Is(err, ErrIgnoreExists) {
			return IgnoreEntry{}, core.NewConflictError(ErrIgnoreExists)
		}
	}
	return created, err
}

// RemoveIgnore puts a person back on follow-up lists. Removing a missing entry is a no-op.
func (svc *Service) RemoveIgnore(ctx context.Context, personID string) error {
	return svc.ignores.DeleteIgnore(ctx, core.CleanString(personID))
}

// SendDigest computes today's follow-up list of a population with the default options and mails it.
// It returns once the digest is delivered.
func (svc *Service) SendDigest(ctx context.Context, t person.Type, recipients []mail.Address) (Report, error) {
	report, err := svc.Compute(ctx, t, svc.DefaultOptions(t))
	if err != nil {
		return Report{}, err
	}
	msg, err := NewDigestMessage(report, recipients)
	if err != nil {
		return Report{}, err
	}
	if err := svc.mailSvc.Send(msg); err != nil {
		return Report{}, errors.Wrap(err, "sending digest")
	}
	return report, nil
}

// AttendanceWeeks returns one person's attendance for each service week of the lookback window, most recent first.
// Only opts.LookbackWeeks and opts.ReferenceDate are used.
func (svc *Service) AttendanceWeeks(ctx context.Context, t person.Type, personID string, opts Options) ([]attendance.WeekStatus, error) {
	if !t.Valid() {
		return nil, core.NewValidationError(person.ErrInvalidType, core.FieldError{Field: "personType", Error: person.ErrInvalidType.Error()})
	}
	if err := svc.validate.StructPartial(opts, "LookbackWeeks"); err != nil {
		return nil, core.TranslateValidationErrors(err, svc.translator)
	}
	if opts.ReferenceDate.IsZero() {
		opts.ReferenceDate = svc.cal.Today()
	}
	weeks, err := calendar.ServiceWeeksBack(opts.ReferenceDate, opts.LookbackWeeks)
	if err != nil {
		return nil, err
	}

	p, err := svc.people.GetPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	if p.Type != t {
		return nil, person.ErrNotFound
	}
	return svc.ledger.WeeklyStatus(ctx, p.ID, t, weeks)
}
