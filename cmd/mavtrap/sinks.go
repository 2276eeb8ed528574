package main

import (
	"context"
	"fmt"

	"github.com/dbehnke/mavtrap/pkg/config"
	"github.com/dbehnke/mavtrap/pkg/database"
	"github.com/dbehnke/mavtrap/pkg/events"
	"github.com/dbehnke/mavtrap/pkg/logger"
	"github.com/dbehnke/mavtrap/pkg/mqtt"
)

// eventSinks are the configured event destinations plus the resources
// main has to shut down itself
type eventSinks struct {
	list []events.Sink
	db   *database.DB
	mqtt *mqtt.Publisher
}

// close releases whatever was opened when startup is aborted
func (s *eventSinks) close() {
	for _, sink := range s.list {
		if c, ok := sink.(events.Closer); ok {
			_ = c.Close()
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.mqtt != nil {
		s.mqtt.Stop()
	}
}

// openSinks builds every enabled sink. A sink that cannot be opened aborts
// startup, except MQTT: an unreachable broker only disables publishing.
func openSinks(ctx context.Context, cfg *config.Config, log *logger.Logger) (*eventSinks, error) {
	s := &eventSinks{}

	if cfg.Events.Console {
		s.list = append(s.list, events.NewConsoleSink(log))
	}

	if cfg.Events.File.Enabled {
		fs, err := events.NewFileSink(events.FileConfig{
			Path:       cfg.Events.File.Path,
			MaxSize:    cfg.Events.File.MaxSize,
			MaxBackups: cfg.Events.File.MaxBackups,
			MaxAge:     cfg.Events.File.MaxAge,
			Compress:   cfg.Events.File.Compress,
		})
		if err != nil {
			return s, err
		}
		s.list = append(s.list, fs)
	}

	if cfg.Database.Enabled {
		db, err := database.NewDB(database.Config{
			Path:      cfg.Database.Path,
			Retention: cfg.Database.Retention,
		}, log)
		if err != nil {
			return s, fmt.Errorf("failed to open event database: %w", err)
		}
		s.db = db
		s.list = append(s.list, events.NewStoreSink(db.Events()))
	}

	if cfg.Postgres.Enabled {
		pg, err := events.NewPostgresSink(ctx, cfg.Postgres.DSN, cfg.Postgres.Table)
		if err != nil {
			return s, err
		}
		log.Info("PostgreSQL event sink ready", logger.String("table", cfg.Postgres.Table))
		s.list = append(s.list, pg)
	}

	if cfg.MQTT.Enabled {
		pub := mqtt.New(mqtt.Config{
			Enabled:     cfg.MQTT.Enabled,
			Broker:      cfg.MQTT.Broker,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			QoS:         cfg.MQTT.QoS,
			Retained:    cfg.MQTT.Retained,
		}, log)
		if err := pub.Start(ctx); err != nil {
			log.Error("MQTT publisher unavailable, events will not be published", logger.Error(err))
		} else {
			s.mqtt = pub
			s.list = append(s.list, events.NewMQTTSink(pub))
		}
	}

	return s, nil
}
