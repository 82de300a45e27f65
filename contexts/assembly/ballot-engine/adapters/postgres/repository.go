package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"summit/contexts/assembly/ballot-engine/domain/entities"
	domainerrors "summit/contexts/assembly/ballot-engine/domain/errors"
	"summit/contexts/assembly/ballot-engine/domain/services"
	"summit/contexts/assembly/ballot-engine/ports"
	"summit/internal/shared/outbox"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the gorm-backed store of the ballot engine. The ballots
// unique index on (resolution_id, dedup_key) is what prevents double voting;
// every read-before-write here exists only for clearer errors.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the ballot engine tables.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&resolutionModel{},
		&optionModel{},
		&eligibleRoleModel{},
		&eligibleTeamModel{},
		&ballotModel{},
		&castModel{},
		&rollcallModel{},
		&memberModel{},
		&outboxModel{},
	)
}

func (r *Repository) CreateResolution(ctx context.Context, resolution entities.Resolution, event ports.EventEnvelope) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := resolutionModelFromEntity(resolution)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRepositoryInvariantBroke
			}
			return err
		}
		if err := insertOptionsTx(tx, resolution.Options); err != nil {
			return err
		}
		if err := insertEligibilityTx(tx, resolution.ResolutionID, resolution.EligibleRoles, resolution.EligibleTeams); err != nil {
			return err
		}
		return insertOutboxEnvelopeTx(tx, event)
	})
	if err != nil {
		return r.logError("assembly_repository_create_resolution_failed", err, "resolution_id", resolution.ResolutionID)
	}
	return nil
}

func (r *Repository) GetResolution(ctx context.Context, resolutionID string) (entities.Resolution, error) {
	resolution, err := loadResolutionTx(r.db.WithContext(ctx), strings.TrimSpace(resolutionID))
	if err != nil && !errors.Is(err, domainerrors.ErrResolutionNotFound) {
		return entities.Resolution{}, r.logError("assembly_repository_get_resolution_failed", err, "resolution_id", resolutionID)
	}
	return resolution, err
}

func (r *Repository) ListResolutions(ctx context.Context, eventID string) ([]entities.Resolution, error) {
	db := r.db.WithContext(ctx)
	var rows []resolutionModel
	if err := db.
		Where("event_id = ?", strings.TrimSpace(eventID)).
		Order("created_at DESC").
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("assembly_repository_list_resolutions_failed", err, "event_id", eventID)
	}
	if len(rows) == 0 {
		return []entities.Resolution{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ResolutionID)
	}
	var options []optionModel
	if err := db.Where("resolution_id IN ?", ids).Order("position ASC").Find(&options).Error; err != nil {
		return nil, r.logError("assembly_repository_list_options_failed", err, "event_id", eventID)
	}
	var roles []eligibleRoleModel
	if err := db.Where("resolution_id IN ?", ids).Order("role ASC").Find(&roles).Error; err != nil {
		return nil, r.logError("assembly_repository_list_roles_failed", err, "event_id", eventID)
	}
	var teams []eligibleTeamModel
	if err := db.Where("resolution_id IN ?", ids).Order("team_id ASC").Find(&teams).Error; err != nil {
		return nil, r.logError("assembly_repository_list_teams_failed", err, "event_id", eventID)
	}

	byID := make(map[string]*entities.Resolution, len(rows))
	items := make([]entities.Resolution, len(rows))
	for i, row := range rows {
		items[i] = row.toEntity()
		byID[row.ResolutionID] = &items[i]
	}
	for _, option := range options {
		if item := byID[option.ResolutionID]; item != nil {
			item.Options = append(item.Options, option.toEntity())
		}
	}
	for _, role := range roles {
		if item := byID[role.ResolutionID]; item != nil {
			item.EligibleRoles = append(item.EligibleRoles, entities.Role(role.Role))
		}
	}
	for _, team := range teams {
		if item := byID[team.ResolutionID]; item != nil {
			item.EligibleTeams = append(item.EligibleTeams, team.TeamID)
		}
	}
	return items, nil
}

func (r *Repository) TransitionResolution(
	ctx context.Context,
	transition ports.StatusTransition,
	event ports.EventEnvelope,
) (entities.Resolution, error) {
	var updated entities.Resolution
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     string(transition.To),
			"updated_at": transition.At.UTC(),
		}
		if transition.To == entities.ResolutionStatusClosed {
			updates["closed_at"] = transition.At.UTC()
		}
		result := tx.Model(&resolutionModel{}).
			Where("resolution_id = ? AND status = ?", transition.ResolutionID, string(transition.From)).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			if _, err := loadResolutionTx(tx, transition.ResolutionID); err != nil {
				return err
			}
			return domainerrors.ErrInvalidTransition
		}
		if err := insertOutboxEnvelopeTx(tx, event); err != nil {
			return err
		}
		resolution, err := loadResolutionTx(tx, transition.ResolutionID)
		if err != nil {
			return err
		}
		updated = resolution
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return entities.Resolution{}, err
		}
		return entities.Resolution{}, r.logError("assembly_repository_transition_failed", err,
			"resolution_id", transition.ResolutionID,
			"to", string(transition.To),
		)
	}
	return updated, nil
}

func (r *Repository) ReplaceEligibility(
	ctx context.Context,
	resolutionID string,
	roles []entities.Role,
	teams []string,
	updatedAt time.Time,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The exclusive lock waits out in-flight casts holding FOR SHARE.
		if _, err := lockResolutionTx(tx, resolutionID, "UPDATE"); err != nil {
			return err
		}
		if err := tx.Where("resolution_id = ?", resolutionID).Delete(&eligibleRoleModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resolution_id = ?", resolutionID).Delete(&eligibleTeamModel{}).Error; err != nil {
			return err
		}
		if err := insertEligibilityTx(tx, resolutionID, roles, teams); err != nil {
			return err
		}
		return tx.Model(&resolutionModel{}).
			Where("resolution_id = ?", resolutionID).
			Update("updated_at", updatedAt.UTC()).
			Error
	})
	if err != nil && !isDomainError(err) {
		return r.logError("assembly_repository_replace_eligibility_failed", err, "resolution_id", resolutionID)
	}
	return err
}

func (r *Repository) ReplaceOptions(
	ctx context.Context,
	resolutionID string,
	options []entities.Option,
	updatedAt time.Time,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockResolutionTx(tx, resolutionID, "UPDATE"); err != nil {
			return err
		}
		var ballots int64
		if err := tx.Model(&ballotModel{}).Where("resolution_id = ?", resolutionID).Count(&ballots).Error; err != nil {
			return err
		}
		if ballots > 0 {
			return domainerrors.ErrOptionsLocked
		}
		if err := tx.Where("resolution_id = ?", resolutionID).Delete(&optionModel{}).Error; err != nil {
			return err
		}
		if err := insertOptionsTx(tx, options); err != nil {
			return err
		}
		return tx.Model(&resolutionModel{}).
			Where("resolution_id = ?", resolutionID).
			Update("updated_at", updatedAt.UTC()).
			Error
	})
	if err != nil && !isDomainError(err) {
		return r.logError("assembly_repository_replace_options_failed", err, "resolution_id", resolutionID)
	}
	return err
}

func (r *Repository) HasBallot(ctx context.Context, resolutionID string, dedupKey string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&ballotModel{}).
		Where("resolution_id = ? AND dedup_key = ?", resolutionID, dedupKey).
		Count(&count).
		Error; err != nil {
		return false, r.logError("assembly_repository_has_ballot_failed", err, "resolution_id", resolutionID)
	}
	return count > 0, nil
}

// RecordBallot re-validates the resolution under a shared row lock, then
// inserts ballot, cast and rollcall in one transaction.
func (r *Repository) RecordBallot(ctx context.Context, record ports.BallotRecord) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resolution, err := lockResolutionTx(tx, record.Ballot.ResolutionID, "SHARE")
		if err != nil {
			return err
		}
		if resolution.Status != entities.ResolutionStatusActive {
			return domainerrors.ErrResolutionNotActive
		}

		var optionCount int64
		if err := tx.Model(&optionModel{}).
			Where("option_id = ? AND resolution_id = ?", record.Cast.OptionID, resolution.ResolutionID).
			Count(&optionCount).
			Error; err != nil {
			return err
		}
		if optionCount == 0 {
			return domainerrors.ErrInvalidOption
		}

		roles, teams, err := loadEligibilityTx(tx, resolution.ResolutionID)
		if err != nil {
			return err
		}
		resolution.EligibleRoles = roles
		resolution.EligibleTeams = teams
		if err := services.CheckVoter(resolution, record.Voter); err != nil {
			return err
		}

		ballotRow := ballotModelFromEntity(record.Ballot)
		if err := tx.Create(&ballotRow).Error; err != nil {
			if isUniqueViolation(err) {
				if constraintName(err) == ballotDedupConstraint {
					return domainerrors.ErrAlreadyVoted
				}
				return domainerrors.ErrRepositoryInvariantBroke
			}
			return err
		}
		castRow := castModel{
			CastID:    record.Cast.CastID,
			BallotID:  record.Cast.BallotID,
			OptionID:  record.Cast.OptionID,
			CreatedAt: record.Cast.CreatedAt.UTC(),
		}
		if err := tx.Create(&castRow).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRepositoryInvariantBroke
			}
			return err
		}
		if record.Rollcall != nil {
			rollcallRow := rollcallModel{
				ResolutionID: record.Rollcall.ResolutionID,
				UserID:       record.Rollcall.UserID,
				TeamID:       record.Rollcall.TeamID,
				OptionKey:    record.Rollcall.OptionKey,
				CreatedAt:    record.Rollcall.CreatedAt.UTC(),
			}
			if err := tx.Create(&rollcallRow).Error; err != nil {
				if isUniqueViolation(err) {
					return domainerrors.ErrAlreadyVoted
				}
				return err
			}
		}
		return nil
	})
	if err != nil && !isDomainError(err) {
		return r.logError("assembly_repository_record_ballot_failed", err,
			"resolution_id", record.Ballot.ResolutionID,
			"ballot_id", record.Ballot.BallotID,
		)
	}
	return err
}

func (r *Repository) CountBallots(ctx context.Context, resolutionID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&ballotModel{}).
		Where("resolution_id = ?", resolutionID).
		Count(&count).
		Error; err != nil {
		return 0, r.logError("assembly_repository_count_ballots_failed", err, "resolution_id", resolutionID)
	}
	return int(count), nil
}

func (r *Repository) CountCastsByOption(ctx context.Context, resolutionID string) (map[string]int, error) {
	type optionCount struct {
		OptionID string
		Total    int
	}
	var rows []optionCount
	if err := r.db.WithContext(ctx).
		Table("casts").
		Select("casts.option_id AS option_id, COUNT(*) AS total").
		Joins("JOIN ballots ON ballots.ballot_id = casts.ballot_id").
		Where("ballots.resolution_id = ?", resolutionID).
		Group("casts.option_id").
		Scan(&rows).
		Error; err != nil {
		return nil, r.logError("assembly_repository_count_casts_failed", err, "resolution_id", resolutionID)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.OptionID] = row.Total
	}
	return counts, nil
}

func (r *Repository) ListRollcalls(ctx context.Context, resolutionID string) ([]entities.Rollcall, error) {
	var rows []rollcallModel
	if err := r.db.WithContext(ctx).
		Where("resolution_id = ?", resolutionID).
		Order("created_at ASC").
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("assembly_repository_list_rollcalls_failed", err, "resolution_id", resolutionID)
	}
	items := make([]entities.Rollcall, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListEventMembers(ctx context.Context, eventID string) ([]entities.Voter, error) {
	var rows []memberModel
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("user_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("assembly_repository_list_members_failed", err, "event_id", eventID)
	}
	items := make([]entities.Voter, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":  outbox.StatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func loadResolutionTx(tx *gorm.DB, resolutionID string) (entities.Resolution, error) {
	var row resolutionModel
	if err := tx.Where("resolution_id = ?", resolutionID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Resolution{}, domainerrors.ErrResolutionNotFound
		}
		return entities.Resolution{}, err
	}
	return hydrateResolutionTx(tx, row)
}

// lockResolutionTx reads the resolution row with FOR SHARE or FOR UPDATE.
func lockResolutionTx(tx *gorm.DB, resolutionID string, strength string) (entities.Resolution, error) {
	var row resolutionModel
	if err := tx.Clauses(clause.Locking{Strength: strength}).
		Where("resolution_id = ?", resolutionID).
		First(&row).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Resolution{}, domainerrors.ErrResolutionNotFound
		}
		return entities.Resolution{}, err
	}
	return row.toEntity(), nil
}

func hydrateResolutionTx(tx *gorm.DB, row resolutionModel) (entities.Resolution, error) {
	resolution := row.toEntity()
	var options []optionModel
	if err := tx.Where("resolution_id = ?", row.ResolutionID).Order("position ASC").Find(&options).Error; err != nil {
		return entities.Resolution{}, err
	}
	for _, option := range options {
		resolution.Options = append(resolution.Options, option.toEntity())
	}
	roles, teams, err := loadEligibilityTx(tx, row.ResolutionID)
	if err != nil {
		return entities.Resolution{}, err
	}
	resolution.EligibleRoles = roles
	resolution.EligibleTeams = teams
	return resolution, nil
}

func loadEligibilityTx(tx *gorm.DB, resolutionID string) ([]entities.Role, []string, error) {
	var roleRows []eligibleRoleModel
	if err := tx.Where("resolution_id = ?", resolutionID).Order("role ASC").Find(&roleRows).Error; err != nil {
		return nil, nil, err
	}
	var teamRows []eligibleTeamModel
	if err := tx.Where("resolution_id = ?", resolutionID).Order("team_id ASC").Find(&teamRows).Error; err != nil {
		return nil, nil, err
	}
	roles := make([]entities.Role, 0, len(roleRows))
	for _, row := range roleRows {
		roles = append(roles, entities.Role(row.Role))
	}
	teams := make([]string, 0, len(teamRows))
	for _, row := range teamRows {
		teams = append(teams, row.TeamID)
	}
	return roles, teams, nil
}

func insertOptionsTx(tx *gorm.DB, options []entities.Option) error {
	if len(options) == 0 {
		return nil
	}
	rows := make([]optionModel, 0, len(options))
	for _, option := range options {
		rows = append(rows, optionModel{
			OptionID:     option.OptionID,
			ResolutionID: option.ResolutionID,
			OptionKey:    option.OptionKey,
			Label:        option.Label,
			Position:     option.Position,
		})
	}
	return tx.Create(&rows).Error
}

func insertEligibilityTx(tx *gorm.DB, resolutionID string, roles []entities.Role, teams []string) error {
	if len(roles) > 0 {
		rows := make([]eligibleRoleModel, 0, len(roles))
		for _, role := range roles {
			rows = append(rows, eligibleRoleModel{ResolutionID: resolutionID, Role: string(role)})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return err
		}
	}
	if len(teams) > 0 {
		rows := make([]eligibleTeamModel, 0, len(teams))
		for _, team := range teams {
			rows = append(rows, eligibleTeamModel{ResolutionID: resolutionID, TeamID: team})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}

func insertOutboxEnvelopeTx(tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if err := tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return err
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "assembly/ballot-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ballot repository operation failed", fields...)
	return err
}

func isDomainError(err error) bool {
	return errors.Is(err, domainerrors.ErrResolutionNotFound) ||
		errors.Is(err, domainerrors.ErrResolutionNotActive) ||
		errors.Is(err, domainerrors.ErrInvalidOption) ||
		errors.Is(err, domainerrors.ErrNotEligible) ||
		errors.Is(err, domainerrors.ErrAlreadyVoted) ||
		errors.Is(err, domainerrors.ErrInvalidTransition) ||
		errors.Is(err, domainerrors.ErrOptionsLocked)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

var _ ports.ResolutionRepository = (*Repository)(nil)
var _ ports.BallotRepository = (*Repository)(nil)
var _ ports.Directory = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
