package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-report-api/internal/dto"
	"github.com/noah-isme/lms-report-api/internal/models"
	"github.com/noah-isme/lms-report-api/internal/repository"
	appErrors "github.com/noah-isme/lms-report-api/pkg/errors"
	"github.com/noah-isme/lms-report-api/pkg/middleware/requestid"
	"github.com/noah-isme/lms-report-api/pkg/months"
	"github.com/noah-isme/lms-report-api/pkg/reportid"
)

const dateLayout = "2006-01-02"

type reportStore interface {
	GetByID(ctx context.Context, id string) (*models.Report, error)
	SaveSnapshot(ctx context.Context, header *models.Report, metrics models.EntityMetrics, adminID string) (string, error)
	EnsureParent(ctx context.Context, header *models.Report, adminID string) (string, error)
	SaveChild(ctx context.Context, header *models.Report, metrics models.EntityMetrics, adminID string) (string, error)
	ListChildren(ctx context.Context, parentID string, entity models.Entity) ([]models.MonthlyChildNode, error)
	FindMonthMetrics(ctx context.Context, reportType models.ReportType, month time.Time) (models.EntityMetrics, error)
	GetMetrics(ctx context.Context, entity models.Entity, reportID string) (models.EntityMetrics, error)
}

type adminReportLister interface {
	ListForAdmin(ctx context.Context, adminID string) ([]models.ReportListItem, error)
}

// metricCatalog is the entity-agnostic view of a metric query library used by the month loop.
type metricCatalog interface {
	EarliestActivity(ctx context.Context) (*time.Time, error)
	Snapshot(ctx context.Context, asOf time.Time) (models.EntityMetrics, error)
	Month(ctx context.Context, month time.Time) (models.EntityMetrics, error)
}

// ReportServiceConfig tunes report assembly.
type ReportServiceConfig struct {
	TopN     int
	CacheTTL time.Duration
}

// ReportServiceParams groups constructor dependencies.
type ReportServiceParams struct {
	Store       reportStore
	Ledger      adminReportLister
	Students    studentMetricsSource
	Courses     courseMetricsSource
	Instructors instructorMetricsSource
	Cache       *CacheService
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Config      ReportServiceConfig
}

// ReportService assembles snapshot and ranged reports on top of the report cache store.
type ReportService struct {
	store       reportStore
	ledger      adminReportLister
	students    studentMetricsSource
	courses     courseMetricsSource
	instructors instructorMetricsSource
	catalogs    map[models.Entity]metricCatalog
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
	newID       func(prefix string) string
	cfg         ReportServiceConfig
}

// RegisterReportValidations installs the "yearmonth" rule (YYYY-MM) used by report queries.
func RegisterReportValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("yearmonth", func(fl validator.FieldLevel) bool {
		_, err := months.Parse(fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("register yearmonth validation: %w", err)
	}
	return nil
}

// NewReportService constructs a ReportService with sane defaults.
func NewReportService(params ReportServiceParams) (*ReportService, error) {
	cfg := params.Config
	if cfg.TopN <= 0 {
		cfg.TopN = 3
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	if err := RegisterReportValidations(validate); err != nil {
		return nil, err
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		store:       params.Store,
		ledger:      params.Ledger,
		students:    params.Students,
		courses:     params.Courses,
		instructors: params.Instructors,
		catalogs: map[models.Entity]metricCatalog{
			models.EntityStudent:    studentCatalog{src: params.Students},
			models.EntityCourse:     courseCatalog{src: params.Courses},
			models.EntityInstructor: instructorCatalog{src: params.Instructors},
		},
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		newID:     reportid.New,
		cfg:       cfg,
	}, nil
}

// List returns the parent-level reports linked to the admin, newest first.
func (s *ReportService) List(ctx context.Context, q dto.ReportQuery) (*dto.ReportList, error) {
	if err := s.validateQuery(q); err != nil {
		return nil, err
	}
	items, err := s.ledger.ListForAdmin(ctx, q.AdminID)
	if err != nil {
		s.log(ctx).Error("list reports failed", zap.String("admin_id", q.AdminID), zap.Error(err))
		return nil, appErrors.Internal(err)
	}
	out := &dto.ReportList{Reports: make([]dto.ReportSummary, 0, len(items))}
	for _, item := range items {
		out.Reports = append(out.Reports, dto.ReportSummary{
			ReportID:       item.ReportID,
			ReportType:     item.ReportType,
			TimeRangeStart: item.TimeRangeStart.Format(dateLayout),
			TimeRangeEnd:   item.TimeRangeEnd.Format(dateLayout),
			GeneratedAt:    item.GeneratedAt,
		})
	}
	return out, nil
}

// Fetch returns one stored report of the entity by its identifier.
func (s *ReportService) Fetch(ctx context.Context, entity models.Entity, reportID string) (*dto.ReportResult, error) {
	node, err := s.loadNode(ctx, entity, reportID)
	if err != nil {
		return nil, err
	}
	var data interface{}
	switch entity {
	case models.EntityStudent:
		data, err = s.studentDetail(ctx, node)
	case models.EntityCourse:
		data, err = s.courseDetail(ctx, node)
	case models.EntityInstructor:
		data, err = s.instructorDetail(ctx, node)
	}
	if err != nil {
		s.log(ctx).Error("report fetch failed", zap.String("report_id", reportID), zap.Error(err))
		return nil, appErrors.Internal(err)
	}
	return &dto.ReportResult{ReportType: node.Header().Type, ReportID: node.Header().ID, Data: data}, nil
}

// Node returns the stored report as a snapshot, ranged parent or monthly child node.
func (s *ReportService) Node(ctx context.Context, entity models.Entity, reportID string) (models.ReportNode, error) {
	return s.loadNode(ctx, entity, reportID)
}

func (s *ReportService) loadNode(ctx context.Context, entity models.Entity, reportID string) (models.ReportNode, error) {
	if !entity.Valid() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown report entity")
	}
	header, err := s.store.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s report not found", entity))
		}
		return nil, appErrors.Internal(err)
	}
	if header.Type.Entity() != entity {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s report not found", entity))
	}

	if header.Type.Ranged() && !header.IsChild() {
		children, err := s.store.ListChildren(ctx, header.ID, entity)
		if err != nil {
			return nil, appErrors.Internal(err)
		}
		return models.RangedParentNode{Report: *header, Children: children}, nil
	}

	metrics, err := s.store.GetMetrics(ctx, entity, header.ID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	if metrics == nil {
		return nil, appErrors.Internal(errors.New("metrics row missing"))
	}
	if header.IsChild() {
		return models.MonthlyChildNode{Report: *header, Metrics: metrics, ParentID: *header.ParentReportID}, nil
	}
	return models.SnapshotNode{Report: *header, Metrics: metrics}, nil
}

type snapshotOutcome struct {
	header  models.Report
	metrics models.EntityMetrics
}

// buildSnapshot computes the snapshot metrics as of asOf, then get-or-creates the header for
// [earliest activity, last completed month] together with its metrics row and admin link.
func (s *ReportService) buildSnapshot(ctx context.Context, entity models.Entity, adminID string, asOf time.Time, summary []byte) (*snapshotOutcome, error) {
	catalog := s.catalogs[entity]
	start, end, err := s.snapshotRange(ctx, catalog, asOf)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	metrics, err := catalog.Snapshot(ctx, asOf)
	s.metrics.ObserveDBQuery(string(entity)+"_snapshot", time.Since(began))
	if err != nil {
		return nil, err
	}

	reportType := entity.GeneralType()
	header := models.Report{
		ID:          s.newID(reportType.IDPrefix()),
		Type:        reportType,
		Description: fmt.Sprintf("%s snapshot %s to %s", entity, months.Label(start), months.Label(end)),
		RangeStart:  start,
		RangeEnd:    end,
	}
	if len(summary) > 0 {
		header.Summary.JSONText = summary
		header.Summary.Valid = true
	}
	id, err := s.store.SaveSnapshot(ctx, &header, metrics, adminID)
	if err != nil {
		return nil, err
	}
	header.ID = id
	return &snapshotOutcome{header: header, metrics: metrics}, nil
}

func (s *ReportService) snapshotRange(ctx context.Context, catalog metricCatalog, asOf time.Time) (time.Time, time.Time, error) {
	lastMonth := months.LastCompleted(asOf)
	earliest, err := catalog.EarliestActivity(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := lastMonth
	// History that begins after the last completed month still yields a one-month snapshot.
	if earliest != nil && months.FirstDay(*earliest).Before(lastMonth) {
		start = months.FirstDay(*earliest)
	}
	return start, months.LastDay(lastMonth), nil
}

type rangedOutcome struct {
	parent   models.Report
	children []models.MonthlyChildNode
}

// buildRanged get-or-creates the parent header for [start, end] and resolves every covered
// month: an existing child of this parent is reused, a month stored under another parent is
// copied, anything else is computed. Each month is persisted in its own transaction.
func (s *ReportService) buildRanged(ctx context.Context, entity models.Entity, adminID string, start, end time.Time) (*rangedOutcome, error) {
	reportType := entity.RangedType()
	parent := models.Report{
		ID:          s.newID(reportType.IDPrefix()),
		Type:        reportType,
		Description: fmt.Sprintf("%s ranged %s to %s", entity, months.Label(start), months.Label(end)),
		RangeStart:  months.FirstDay(start),
		RangeEnd:    months.LastDay(end),
	}
	parentID, err := s.store.EnsureParent(ctx, &parent, adminID)
	if err != nil {
		return nil, err
	}
	parent.ID = parentID

	existing, err := s.store.ListChildren(ctx, parentID, entity)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]models.MonthlyChildNode, len(existing))
	for _, child := range existing {
		byMonth[months.Label(child.Report.RangeStart)] = child
	}

	span := months.Between(start, end)
	children := make([]models.MonthlyChildNode, 0, len(span))
	for _, month := range span {
		label := months.Label(month)
		if child, ok := byMonth[label]; ok {
			s.logger.Debug("report month cache hit", zap.String("report_type", string(reportType)), zap.String("month", label))
			s.metrics.ObserveMonthResolution(entity, MonthSourceCached)
			children = append(children, child)
			continue
		}

		metrics, source, err := s.resolveMonth(ctx, reportType, month)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("report month cache miss", zap.String("report_type", string(reportType)), zap.String("month", label), zap.String("source", source))
		s.metrics.ObserveMonthResolution(entity, source)

		pid := parentID
		header := models.Report{
			ID:             s.newID(reportType.IDPrefix()),
			Type:           reportType,
			Description:    fmt.Sprintf("%s month %s", entity, label),
			RangeStart:     months.FirstDay(month),
			RangeEnd:       months.LastDay(month),
			ParentReportID: &pid,
		}
		childID, err := s.store.SaveChild(ctx, &header, metrics, adminID)
		if err != nil {
			return nil, err
		}
		header.ID = childID
		children = append(children, models.MonthlyChildNode{Report: header, Metrics: metrics, ParentID: parentID})
	}
	return &rangedOutcome{parent: parent, children: children}, nil
}

func (s *ReportService) resolveMonth(ctx context.Context, reportType models.ReportType, month time.Time) (models.EntityMetrics, string, error) {
	stored, err := s.store.FindMonthMetrics(ctx, reportType, month)
	if err != nil {
		return nil, "", err
	}
	if stored != nil {
		return stored, MonthSourceCopied, nil
	}
	began := time.Now()
	metrics, err := s.catalogs[reportType.Entity()].Month(ctx, month)
	s.metrics.ObserveDBQuery(string(reportType.Entity())+"_month", time.Since(began))
	if err != nil {
		return nil, "", err
	}
	return metrics, MonthSourceComputed, nil
}

// finish records the outcome of an assembly and converts failures into 500s carrying the cause.
func (s *ReportService) finish(ctx context.Context, reportType models.ReportType, adminID string, result *dto.ReportResult, err error) (*dto.ReportResult, error) {
	s.metrics.ObserveReport(reportType, err)
	if err != nil {
		s.log(ctx).Error("report assembly failed",
			zap.String("report_type", string(reportType)),
			zap.String("admin_id", adminID),
			zap.Error(err))
		return nil, appErrors.Internal(err)
	}
	return result, nil
}

func (s *ReportService) log(ctx context.Context) *zap.Logger {
	if id := requestid.FromContext(ctx); id != "" {
		return s.logger.With(zap.String("request_id", id))
	}
	return s.logger
}

func (s *ReportService) validateQuery(q dto.ReportQuery) error {
	if err := s.validator.Struct(q); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return appErrors.Clone(appErrors.ErrValidation, validationMessage(fieldErrs[0]))
		}
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report query")
	}
	return nil
}

// parseRange validates a ranged query. end defaults to start; both resolve to the first day
// of their month.
func (s *ReportService) parseRange(q dto.ReportQuery) (time.Time, time.Time, error) {
	if err := s.validateQuery(q); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if strings.TrimSpace(q.Start) == "" {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "missing start")
	}
	endRaw := q.End
	if strings.TrimSpace(endRaw) == "" {
		endRaw = q.Start
	}
	start, err := months.Parse(q.Start)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date format")
	}
	end, err := months.Parse(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date format")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end < start")
	}
	return start, end, nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.StructField() + "." + fe.Tag() {
	case "AdminID.required":
		return "missing admin_id"
	case "AdminID.max":
		return "admin_id too long"
	default:
		return "invalid date format"
	}
}

func rangedWindow(r models.Report) repository.Window {
	return repository.Window{From: r.RangeStart, To: r.RangeEnd}
}

func monthRange(start, end time.Time) dto.MonthRange {
	return dto.MonthRange{Start: months.Label(start), End: months.Label(end)}
}

func reportHeader(r models.Report) dto.ReportHeader {
	return dto.ReportHeader{
		ReportID:       r.ID,
		ReportType:     r.Type,
		TimeRangeStart: r.RangeStart.Format(dateLayout),
		TimeRangeEnd:   r.RangeEnd.Format(dateLayout),
		ParentReportID: r.ParentReportID,
		GeneratedAt:    r.CreatedAt,
	}
}

func seriesMap(points []models.MonthCount) map[string]int {
	out := make(map[string]int, len(points))
	for _, p := range points {
		out[months.Label(p.Month)] = p.Count
	}
	return out
}

func entityRefs(ids []string, found func(id string) (interface{}, bool)) []dto.EntityRef {
	refs := make([]dto.EntityRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, entityRef(id, found))
	}
	return refs
}

func entityRef(id string, found func(id string) (interface{}, bool)) dto.EntityRef {
	details, ok := found(id)
	if !ok {
		return dto.EntityRef{ID: id, Available: false}
	}
	return dto.EntityRef{ID: id, Available: true, Details: details}
}

func optionalRef(id *string, found func(id string) (interface{}, bool)) *dto.EntityRef {
	if id == nil || *id == "" {
		return nil
	}
	ref := entityRef(*id, found)
	return &ref
}
