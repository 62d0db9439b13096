package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/database"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/eav"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
)

// StagedValue is one typed attribute value waiting in the staging table.
type StagedValue struct {
	SiteID      int64
	AttributeID int64
	Value       eav.Value
}

// SiteValue is one stored value rendered for display.
type SiteValue struct {
	SiteID int64
	Text   string
}

// AttributeValueRepository stages and reads attribute values. Every Fetch
// method issues exactly one query regardless of how many sites are requested.
// An empty siteIDs slice, nil or not, means all sites.
type AttributeValueRepository interface {
	CreateStaging(ctx context.Context) error
	Stage(ctx context.Context, rows []StagedValue) (int64, error)
	CommitStaged(ctx context.Context, lineageID int64, startDT time.Time) (int64, error)

	// FetchGeneric reads an int, txt, num or ts attribute ordered by site and start_dt.
	FetchGeneric(ctx context.Context, def *models.AttributeDefinition, siteIDs []int64) ([]SiteValue, error)
	// FetchDomainTable reads a tbl attribute ordered by site and sort order.
	FetchDomainTable(ctx context.Context, table string, siteIDs []int64) ([]SiteValue, error)
	// FetchVocabulary reads a ref or refs attribute ordered by site and sort order.
	FetchVocabulary(ctx context.Context, vocab Vocabulary, siteIDs []int64) ([]SiteValue, error)
}

type attributeValueRepository struct{}

// NewAttributeValueRepository creates a new attribute value repository.
func NewAttributeValueRepository() AttributeValueRepository {
	return &attributeValueRepository{}
}

var _ AttributeValueRepository = (*attributeValueRepository)(nil)

const valueStagingTable = "tmp_site_attribute_values"

var valueStagingColumns = []string{"site_id", "attribute_id", "value_int", "value_txt", "value_num", "value_ts"}

func (r *attributeValueRepository) CreateStaging(ctx context.Context) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		CREATE TEMP TABLE ` + valueStagingTable + ` (
			site_id      bigint NOT NULL,
			attribute_id bigint NOT NULL,
			value_int    bigint,
			value_txt    text,
			value_num    numeric,
			value_ts     timestamptz
		) ON COMMIT DROP`

	if _, err := scope.Querier().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create attribute value staging table: %w", err)
	}
	return nil
}

// stagingRow places the value in the column of its type and leaves the rest NULL.
func stagingRow(row StagedValue) ([]any, error) {
	out := []any{row.SiteID, row.AttributeID, nil, nil, nil, nil}
	v := row.Value
	switch v.Type {
	case models.ValueTypeInt:
		out[2] = v.Int
	case models.ValueTypeTxt:
		out[3] = v.Txt
	case models.ValueTypeNum:
		var n pgtype.Numeric
		if err := n.Scan(strconv.FormatFloat(v.Num, 'f', -1, 64)); err != nil {
			return nil, fmt.Errorf("invalid numeric value %v: %w", v.Num, err)
		}
		out[4] = n
	case models.ValueTypeTS:
		out[5] = v.TS
	default:
		return nil, fmt.Errorf("value type %q is not stored in the generic value table", v.Type)
	}
	return out, nil
}

func (r *attributeValueRepository) Stage(ctx context.Context, rows []StagedValue) (int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no database scope in context")
	}

	n, err := scope.Querier().CopyFrom(ctx,
		pgx.Identifier{valueStagingTable},
		valueStagingColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return stagingRow(rows[i])
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to stage attribute values: %w", err)
	}
	return n, nil
}

func (r *attributeValueRepository) CommitStaged(ctx context.Context, lineageID int64, startDT time.Time) (int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no database scope in context")
	}

	query := `
		INSERT INTO site_attribute_values
			(site_id, attribute_id, value_int, value_txt, value_num, value_ts, lineage_id, start_dt)
		SELECT site_id, attribute_id, value_int, value_txt, value_num, value_ts, $1, $2
		FROM ` + valueStagingTable

	tag, err := scope.Querier().Exec(ctx, query, lineageID, startDT)
	if err != nil {
		return 0, fmt.Errorf("failed to commit staged attribute values: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *attributeValueRepository) FetchGeneric(ctx context.Context, def *models.AttributeDefinition, siteIDs []int64) ([]SiteValue, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}
	if !def.ValueType.IsGeneric() {
		return nil, fmt.Errorf("attribute %q has non-generic type %q", def.Name, def.ValueType)
	}

	query := `
		SELECT site_id, value_int, value_txt, value_num::text, value_ts
		FROM site_attribute_values
		WHERE attribute_id = $1`
	args := []any{def.ID}
	if len(siteIDs) > 0 {
		query += ` AND site_id = ANY($2)`
		args = append(args, siteIDs)
	}
	query += ` ORDER BY site_id, start_dt, id`

	rows, err := scope.Querier().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch values of %q: %w", def.Name, err)
	}
	defer rows.Close()

	var out []SiteValue
	for rows.Next() {
		var (
			siteID int64
			i      *int64
			txt    *string
			num    *string
			ts     *time.Time
		)
		if err := rows.Scan(&siteID, &i, &txt, &num, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan value of %q: %w", def.Name, err)
		}

		var text string
		switch {
		case def.ValueType == models.ValueTypeInt && i != nil:
			text = strconv.FormatInt(*i, 10)
		case def.ValueType == models.ValueTypeTxt && txt != nil:
			text = *txt
		case def.ValueType == models.ValueTypeNum && num != nil:
			text = *num
		case def.ValueType == models.ValueTypeTS && ts != nil:
			text = eav.FormatTimestamp(*ts)
		default:
			continue
		}
		out = append(out, SiteValue{SiteID: siteID, Text: text})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate values of %q: %w", def.Name, err)
	}
	return out, nil
}

func (r *attributeValueRepository) FetchDomainTable(ctx context.Context, table string, siteIDs []int64) ([]SiteValue, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `SELECT site_id, value FROM ` + pgx.Identifier{table}.Sanitize()
	args := []any{}
	if len(siteIDs) > 0 {
		query += ` WHERE site_id = ANY($1)`
		args = append(args, siteIDs)
	}
	query += ` ORDER BY site_id, sort_order, id`

	return querySiteValues(ctx, scope.Querier(), query, args...)
}

func (r *attributeValueRepository) FetchVocabulary(ctx context.Context, vocab Vocabulary, siteIDs []int64) ([]SiteValue, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := fmt.Sprintf(`
		SELECT l.site_id, r.name
		FROM %s l
		JOIN %s r ON r.id = l.%s`,
		pgx.Identifier{vocab.LinkTable}.Sanitize(),
		pgx.Identifier{vocab.RefTable}.Sanitize(),
		pgx.Identifier{vocab.FKColumn}.Sanitize(),
	)
	args := []any{}
	if len(siteIDs) > 0 {
		query += ` WHERE l.site_id = ANY($1)`
		args = append(args, siteIDs)
	}
	query += ` ORDER BY l.site_id, l.sort_order, r.name`

	return querySiteValues(ctx, scope.Querier(), query, args...)
}

func querySiteValues(ctx context.Context, q database.Querier, query string, args ...any) ([]SiteValue, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch site values: %w", err)
	}

	values, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SiteValue, error) {
		var v SiteValue
		err := row.Scan(&v.SiteID, &v.Text)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan site values: %w", err)
	}
	return values, nil
}
