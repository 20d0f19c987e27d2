package repo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"metadirectory/src/core/domain"
	"metadirectory/src/core/ports"
	"metadirectory/src/infra/db"
)

var _ ports.DirectoryRepository = (*PostgresRepository)(nil)

// PostgresRepository implements DirectoryRepository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgresRepository constructs a repository backed by Postgres.
func NewPostgresRepository(pg *db.Postgres, log *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		pool: pg.Pool,
		log:  log,
	}
}

func (r *PostgresRepository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// Domains

const domainColumns = `
	domain_id, name, version, protocol, network_addr, network_port,
	automatic_networking, restricted, capacity, description, maturity,
	restriction, hosts, tags, contact_info, managers, images, thumbnail,
	world_name, num_users, num_anon_users, sponsor_account_id, api_key_hash,
	time_of_last_heartbeat, created_at`

func (r *PostgresRepository) GetDomain(ctx context.Context, domainID string) (*domain.Domain, error) {
	q := `SELECT ` + domainColumns + ` FROM domains WHERE domain_id = $1`

	var (
		d                               domain.Domain
		networking, maturity, restricts string
	)
	err := r.pool.QueryRow(ctx, q, domainID).Scan(
		&d.ID, &d.Name, &d.Version, &d.Protocol, &d.NetworkAddr, &d.NetworkPort,
		&networking, &d.Restricted, &d.Capacity, &d.Description, &maturity,
		&restricts, &d.Hosts, &d.Tags, &d.ContactInfo, &d.Managers, &d.Images, &d.Thumbnail,
		&d.WorldName, &d.NumUsers, &d.NumAnonUsers, &d.SponsorAccountID, &d.APIKeyHash,
		&d.TimeOfLastHeartbeat, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("domain")
		}
		return nil, err
	}
	d.AutomaticNetworking = domain.AutomaticNetworking(networking)
	d.Maturity = domain.Maturity(maturity)
	d.Restriction = domain.Restriction(restricts)
	return &d, nil
}

// CreateDomain inserts a domain. Registration is handled elsewhere; this
// exists for seeding and tests.
func (r *PostgresRepository) CreateDomain(ctx context.Context, d *domain.Domain) error {
	const q = `
		INSERT INTO domains (domain_id, name, sponsor_account_id, api_key_hash, managers, maturity, restriction)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	managers := d.Managers
	if managers == nil {
		managers = []string{}
	}
	maturity, restriction := d.Maturity, d.Restriction
	if maturity == "" {
		maturity = domain.MaturityUnrated
	}
	if restriction == "" {
		restriction = domain.RestrictionOpen
	}
	_, err := r.pool.Exec(ctx, q, d.ID, d.Name, d.SponsorAccountID, d.APIKeyHash, managers, string(maturity), string(restriction))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("domain %s already exists: %w", d.ID, err)
		}
		return err
	}
	return nil
}

// UpdateDomain writes the change-set in one statement. The heartbeat column
// only moves forward.
func (r *PostgresRepository) UpdateDomain(ctx context.Context, domainID string, changes domain.ChangeSet) error {
	if len(changes) == 0 {
		return nil
	}

	fields := changes.Fields()
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })

	sets := make([]string, 0, len(fields))
	args := []any{domainID}
	for _, f := range fields {
		col, ok := domainColumnFor[f]
		if !ok {
			return fmt.Errorf("no column for field %q", f)
		}
		args = append(args, columnValue(changes[f]))
		if f == domain.FieldTimeOfLastHeartbeat {
			sets = append(sets, fmt.Sprintf("%s = GREATEST(%s, $%d)", col, col, len(args)))
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	q := `UPDATE domains SET ` + strings.Join(sets, ", ") + ` WHERE domain_id = $1`
	res, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NewNotFoundError("domain")
	}
	return nil
}

func (r *PostgresRepository) DeleteDomain(ctx context.Context, domainID string) error {
	const q = `DELETE FROM domains WHERE domain_id = $1`
	res, err := r.pool.Exec(ctx, q, domainID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NewNotFoundError("domain")
	}
	return nil
}

// domainColumnFor maps change-set fields to columns. Only these columns can
// ever be named in an UPDATE.
var domainColumnFor = map[domain.Field]string{
	domain.FieldVersion:             "version",
	domain.FieldProtocol:            "protocol",
	domain.FieldNetworkAddr:         "network_addr",
	domain.FieldNetworkPort:         "network_port",
	domain.FieldAutomaticNetworking: "automatic_networking",
	domain.FieldRestricted:          "restricted",
	domain.FieldCapacity:            "capacity",
	domain.FieldDescription:         "description",
	domain.FieldMaturity:            "maturity",
	domain.FieldRestriction:         "restriction",
	domain.FieldHosts:               "hosts",
	domain.FieldTags:                "tags",
	domain.FieldContactInfo:         "contact_info",
	domain.FieldManagers:            "managers",
	domain.FieldImages:              "images",
	domain.FieldThumbnail:           "thumbnail",
	domain.FieldWorldName:           "world_name",
	domain.FieldNumUsers:            "num_users",
	domain.FieldNumAnonUsers:        "num_anon_users",
	domain.FieldTimeOfLastHeartbeat: "time_of_last_heartbeat",
}

func columnValue(v any) any {
	switch t := v.(type) {
	case domain.Maturity:
		return string(t)
	case domain.Restriction:
		return string(t)
	case domain.AutomaticNetworking:
		return string(t)
	case time.Time:
		return t.UTC()
	}
	return v
}

// Places

// PlaceIDsForDomain reads every matching ID before yielding so no connection
// is held while the caller deletes.
func (r *PostgresRepository) PlaceIDsForDomain(ctx context.Context, domainID string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		const q = `SELECT place_id FROM places WHERE domain_id = $1 ORDER BY place_id`
		rows, err := r.pool.Query(ctx, q, domainID)
		if err != nil {
			yield("", err)
			return
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			yield("", err)
			return
		}
		for _, id := range ids {
			if !yield(id, nil) {
				return
			}
		}
	}
}

// CreatePlace inserts a place bound to a domain.
func (r *PostgresRepository) CreatePlace(ctx context.Context, p *domain.Place) error {
	const q = `INSERT INTO places (place_id, name, domain_id) VALUES ($1, $2, $3)`
	_, err := r.pool.Exec(ctx, q, p.ID, p.Name, p.DomainID)
	return err
}

func (r *PostgresRepository) DeletePlace(ctx context.Context, placeID string) error {
	const q = `DELETE FROM places WHERE place_id = $1`
	res, err := r.pool.Exec(ctx, q, placeID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NewNotFoundError("place")
	}
	return nil
}

// Accounts & tokens

func (r *PostgresRepository) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	const q = `
		SELECT account_id, username, email, roles, created_at
		FROM accounts
		WHERE account_id = $1
	`
	var (
		a     domain.Account
		roles []string
	)
	if err := r.pool.QueryRow(ctx, q, accountID).Scan(&a.ID, &a.Username, &a.Email, &roles, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("account")
		}
		return nil, err
	}
	for _, role := range roles {
		a.Roles = append(a.Roles, domain.AccountRole(role))
	}
	return &a, nil
}

// CreateAccount inserts an account.
func (r *PostgresRepository) CreateAccount(ctx context.Context, a *domain.Account) error {
	const q = `INSERT INTO accounts (account_id, username, email, roles) VALUES ($1, $2, $3, $4)`
	roles := make([]string, 0, len(a.Roles))
	for _, role := range a.Roles {
		roles = append(roles, string(role))
	}
	_, err := r.pool.Exec(ctx, q, a.ID, a.Username, a.Email, roles)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("account %s already exists: %w", a.Username, err)
	}
	return err
}

func (r *PostgresRepository) GetToken(ctx context.Context, token string) (*domain.AuthToken, error) {
	const q = `
		SELECT token, account_id, scope, expires_at
		FROM auth_tokens
		WHERE token = $1
	`
	var (
		t       domain.AuthToken
		scope   string
		expires *time.Time
	)
	if err := r.pool.QueryRow(ctx, q, token).Scan(&t.Token, &t.AccountID, &scope, &expires); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("token")
		}
		return nil, err
	}
	t.Scope = domain.TokenScope(scope)
	if expires != nil {
		t.ExpiresAt = *expires
	}
	return &t, nil
}

// CreateToken stores an account token. An empty scope is stored as owner.
func (r *PostgresRepository) CreateToken(ctx context.Context, t *domain.AuthToken) error {
	const q = `INSERT INTO auth_tokens (token, account_id, scope, expires_at) VALUES ($1, $2, $3, $4)`
	var expires *time.Time
	if !t.ExpiresAt.IsZero() {
		expires = &t.ExpiresAt
	}
	scope := t.Scope
	if scope == "" {
		scope = domain.TokenScopeOwner
	}
	_, err := r.pool.Exec(ctx, q, t.Token, t.AccountID, string(scope), expires)
	return err
}
