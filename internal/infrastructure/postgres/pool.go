package postgres

import (
	"context"
	"fmt"
	"net"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jhoicas/Envios-api/pkg/config"
	"github.com/jhoicas/Envios-api/pkg/logger"
)

// NewPool abre el pool de PostgreSQL y verifica la conexión con un ping.
func NewPool(ctx context.Context, cfg config.DBConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := buildPoolConfig(cfg, log)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}

	log.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Str("database", poolConfig.ConnConfig.Database).
		Int32("max_conns", poolConfig.MaxConns).
		Int32("min_conns", poolConfig.MinConns).
		Bool("ipv4", cfg.ForceIPv4).
		Msg("pool de PostgreSQL listo")
	return pool, nil
}

func buildPoolConfig(cfg config.DBConfig, log *logger.Logger) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsear configuración DB: %w", err)
	}

	poolConfig.MaxConns = int32(orDefault(cfg.MaxConns, 25))
	poolConfig.MinConns = int32(min(orDefault(cfg.MinConns, 2), int(poolConfig.MaxConns)))
	poolConfig.MaxConnLifetime = orDefault(cfg.MaxConnLife, time.Hour)
	poolConfig.MaxConnIdleTime = orDefault(cfg.MaxConnIdle, 30*time.Minute)
	poolConfig.HealthCheckPeriod = time.Minute

	// Montos y tarifas viajan como numeric; se leen en decimal.Decimal.
	poolConfig.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	if cfg.ForceIPv4 {
		poolConfig.ConnConfig.LookupFunc = lookupIPv4
	}
	if cfg.LogQueries {
		poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   queryLogger(log),
			LogLevel: tracelog.LogLevelDebug,
		}
	}
	return poolConfig, nil
}

// lookupIPv4 descarta registros AAAA; sirve en redes de contenedores sin ruta IPv6.
func lookupIPv4(ctx context.Context, host string) ([]string, error) {
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, fmt.Errorf("resolver %s en IPv4: %w", host, err)
	}
	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, ip.String())
	}
	return addrs, nil
}

func queryLogger(log *logger.Logger) tracelog.Logger {
	return tracelog.LoggerFunc(func(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		ev := log.Debug()
		if level <= tracelog.LogLevelError {
			ev = log.Error()
		}
		ev.Fields(data).Msg("pgx: " + msg)
	})
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
