package library

import (
	"context"
	"fmt"

	"Phonolib/library"
	"Phonolib/model"

	"github.com/google/uuid"
)

// AddPluginData records one fact in the plugin data ledger. A fact is
// identified by (track, plugin name, plugin version, key, user); with
// replace on, a new write overwrites the newest row of that tuple,
// otherwise a historical row is appended next to it.
func (e *Engine) AddPluginData(ctx context.Context, input library.PluginDataInput) (*model.PluginData, error) {
	if input.PluginName == "" {
		return nil, &model.ValidationError{Message: "plugin data requires a plugin name"}
	}
	if input.Key == "" {
		return nil, &model.ValidationError{Message: "plugin data requires a key"}
	}
	track, err := e.tracks.GetTrackByID(input.TrackID)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, &model.NotFoundError{Kind: "track", ID: input.TrackID}
	}

	version := input.PluginVersion
	if version == "" {
		v, ok := e.registry.Version(input.PluginName)
		if !ok {
			return nil, &model.ConfigurationError{
				Message: fmt.Sprintf("plugin %q is not registered and no version was given", input.PluginName),
			}
		}
		version = v
	}

	userID := e.resolveUser(input.UserID)
	replace := e.cfg.ReplacePluginData
	if input.Replace != nil {
		replace = *input.Replace
	}

	tx, err := e.db.Begin()
	if err != nil {
		return nil, err
	}
	if replace {
		existing, err := e.pluginData.FindLatestWithTx(tx, input.TrackID, userID, input.PluginName, version, input.Key)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if existing != nil {
			if err := e.pluginData.UpdateValueWithTx(tx, existing.ID, input.Value); err != nil {
				tx.Rollback()
				return nil, err
			}
			if err := tx.Commit(); err != nil {
				return nil, err
			}
			existing.Value = input.Value
			return existing, nil
		}
	}
	pd := &model.PluginData{
		ID:            uuid.New(),
		TrackID:       input.TrackID,
		UserID:        userID,
		PluginName:    input.PluginName,
		PluginVersion: version,
		Key:           input.Key,
		Value:         input.Value,
	}
	if err := e.pluginData.CreatePluginDataWithTx(tx, pd); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return pd, nil
}

// GetPluginData retrieves ledger rows for a track, narrowed by every
// populated query field. Rows come back oldest first.
func (e *Engine) GetPluginData(ctx context.Context, q library.PluginDataQuery) ([]*model.PluginData, error) {
	if q.TrackID == uuid.Nil {
		return nil, &model.ValidationError{Message: "plugin data query requires a track id"}
	}
	return e.pluginData.QueryPluginData(q.TrackID, q.UserID, q.PluginName, q.PluginVersion, q.Key)
}

// GetPluginValue returns the newest value recorded for a fact, with
// ok=false when the fact was never recorded. Absence is not an error.
func (e *Engine) GetPluginValue(ctx context.Context, q library.PluginDataQuery) (string, bool, error) {
	if q.PluginName == "" || q.Key == "" {
		return "", false, &model.ValidationError{Message: "plugin value lookup requires a plugin name and key"}
	}
	rows, err := e.GetPluginData(ctx, q)
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[len(rows)-1].Value, true, nil
}
