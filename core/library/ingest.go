package library

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"Phonolib/library"
	"Phonolib/logger"
	"Phonolib/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// supportedAudioExtensions lists the file types accepted by AddTrack
// and picked up by the directory scan.
var supportedAudioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".aiff": true,
	".aif":  true,
	".m4a":  true,
	".opus": true,
}

// SupportedAudioFile reports whether the path has an ingestible audio
// extension.
func SupportedAudioFile(path string) bool {
	return supportedAudioExtensions[strings.ToLower(filepath.Ext(path))]
}

// fileChecksum computes the md5 content checksum used for duplicate
// detection.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for checksum: %w", path, err)
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// AddTrack ingests a single audio file. With duplicate skipping on, a
// file whose checksum is already in the library resolves to the
// existing track, id included, instead of creating a second one.
func (e *Engine) AddTrack(ctx context.Context, filePath string, opts library.IngestOptions) (*model.Track, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, &model.ValidationError{Message: fmt.Sprintf("cannot read file %s: %v", filePath, err)}
	}
	if info.IsDir() {
		return nil, &model.ValidationError{Message: fmt.Sprintf("%s is a directory, use AddTracks", filePath)}
	}
	if !SupportedAudioFile(filePath) {
		return nil, &model.ValidationError{Message: fmt.Sprintf("unsupported file type %s", filepath.Ext(filePath))}
	}

	userID := e.resolveUser(opts.UserID)
	checksum, err := fileChecksum(filePath)
	if err != nil {
		return nil, err
	}

	skipDup := e.cfg.SkipDuplicate
	if opts.SkipDuplicate != nil {
		skipDup = *opts.SkipDuplicate
	}

	// The duplicate check and the insert share one transaction so two
	// concurrent ingests of the same file cannot both pass the check.
	tx, err := e.tracks.BeginTx()
	if err != nil {
		return nil, err
	}
	if skipDup {
		existing, err := e.tracks.GetTrackByChecksumWithTx(tx, userID, checksum)
		if err != nil {
			e.tracks.RollbackTx(tx)
			return nil, err
		}
		if existing != nil {
			e.tracks.RollbackTx(tx)
			logger.Debug("duplicate source resolved to existing track",
				zap.String("trackId", existing.ID.String()), zap.String("checksum", checksum))
			return existing, nil
		}
	}

	resource, err := e.buildResource(ctx, filePath, info.Size(), checksum, model.ResourceTypeAudio, userID, opts.CopyToLibrary)
	if err != nil {
		e.tracks.RollbackTx(tx)
		return nil, err
	}

	trackType := opts.TrackType
	if trackType == "" {
		trackType = model.DefaultTrackType
	}
	meta := make(map[string]any, len(opts.Meta)+1)
	for k, v := range opts.Meta {
		meta[k] = v
	}
	if _, ok := meta["title"]; !ok {
		base := filepath.Base(filePath)
		meta["title"] = strings.TrimSuffix(base, filepath.Ext(base))
	}

	track := &model.Track{
		ID:         uuid.New(),
		UserID:     userID,
		TrackType:  trackType,
		Visibility: model.VisibilityPrivate,
		Resource:   resource,
		Meta:       meta,
	}
	if err := e.tracks.CreateTrackWithTx(tx, track); err != nil {
		e.tracks.RollbackTx(tx)
		return nil, err
	}
	if err := e.tracks.CommitTx(tx); err != nil {
		return nil, err
	}
	return e.tracks.GetTrackByID(track.ID)
}

// buildResource stores the file if copy-to-library applies and returns
// the resource descriptor pointing at wherever the bytes ended up.
func (e *Engine) buildResource(ctx context.Context, filePath string, size int64, checksum string, rt model.ResourceType, userID uuid.UUID, copyOverride *bool) (*model.Resource, error) {
	copyToLibrary := e.cfg.CopyToLibrary
	if copyOverride != nil {
		copyToLibrary = *copyOverride
	}

	resourceMeta := map[string]any{
		"original_filename": filepath.Base(filePath),
		"original_filepath": filepath.Dir(filePath),
		"file_size":         size,
		"checksum":          checksum,
	}

	if !copyToLibrary {
		return &model.Resource{
			FilePath:     filepath.Dir(filePath),
			FileName:     filepath.Base(filePath),
			ResourceType: rt,
			Location:     model.LocationOriginal,
			Meta:         resourceMeta,
		}, nil
	}

	// Conversion is left to an external collaborator; the requested
	// treatment is recorded so it can act on it later.
	resourceMeta["auto_convert"] = e.cfg.AutoConvert
	resourceMeta["auto_resample"] = e.cfg.AutoResample
	resourceMeta["sample_rate"] = e.cfg.DefaultSampleRate

	ext := strings.TrimPrefix(filepath.Ext(filePath), ".")
	fileName := e.storage.GenerateFilename(ext, userID.String())
	stored, err := e.storage.Store(ctx, filePath, fileName, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", filePath, err)
	}
	return &model.Resource{
		FilePath:     e.storage.Path(stored, userID.String()),
		FileName:     e.storage.Name(stored, userID.String()),
		ResourceType: rt,
		Location:     e.storage.Location(),
		Meta:         resourceMeta,
	}, nil
}

// AddTracks ingests every supported audio file under dir, walking it
// recursively. Files are processed by a bounded worker pool; a file
// that fails is logged and skipped, it does not abort the scan.
func (e *Engine) AddTracks(ctx context.Context, dir string, opts library.IngestOptions) ([]*model.Track, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &model.ValidationError{Message: fmt.Sprintf("cannot read directory %s: %v", dir, err)}
	}
	if !info.IsDir() {
		return nil, &model.ValidationError{Message: fmt.Sprintf("%s is not a directory", dir)}
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && SupportedAudioFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	workers := e.cfg.MaxThreads
	if workers < 1 {
		workers = 1
	}

	// Results keep the walk order regardless of which worker finished
	// first, so the collection below preserves it too.
	results := make([]*model.Track, len(paths))
	buffer := e.cfg.BatchSize
	if buffer < 1 {
		buffer = 1
	}
	jobs := make(chan int, buffer)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				track, err := e.AddTrack(ctx, paths[idx], opts)
				if err != nil {
					logger.Warn("skipping file during scan", zap.String("path", paths[idx]), zap.Error(err))
					continue
				}
				results[idx] = track
			}
		}()
	}
	for idx := range paths {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	// Duplicate files resolve to one track, so the collection seeds
	// must be deduplicated or the same track would join twice.
	tracks := make([]*model.Track, 0, len(results))
	trackIDs := make([]uuid.UUID, 0, len(results))
	seeded := make(map[uuid.UUID]bool, len(results))
	for _, track := range results {
		if track == nil {
			continue
		}
		tracks = append(tracks, track)
		if !seeded[track.ID] {
			seeded[track.ID] = true
			trackIDs = append(trackIDs, track.ID)
		}
	}

	if _, err := e.AddCollection(ctx, library.CollectionSpec{
		Name:     dir,
		UserID:   opts.UserID,
		TrackIDs: trackIDs,
	}); err != nil {
		return nil, fmt.Errorf("failed to create scan collection for %s: %w", dir, err)
	}

	logger.Info("directory scan finished",
		zap.String("dir", dir), zap.Int("found", len(paths)), zap.Int("added", len(tracks)))
	return tracks, nil
}

// CreateObject creates a manually described entity that need not be
// backed by an audio file.
func (e *Engine) CreateObject(ctx context.Context, spec library.ObjectSpec) (*model.Track, error) {
	userID := e.resolveUser(spec.UserID)
	trackType := spec.TrackType
	if trackType == "" {
		trackType = model.DefaultTrackType
	}
	visibility := spec.Visibility
	if visibility == "" {
		visibility = model.VisibilityPrivate
	}

	var resource *model.Resource
	if spec.FilePath != "" {
		info, err := os.Stat(spec.FilePath)
		if err != nil {
			return nil, &model.ValidationError{Message: fmt.Sprintf("cannot read file %s: %v", spec.FilePath, err)}
		}
		checksum, err := fileChecksum(spec.FilePath)
		if err != nil {
			return nil, err
		}
		rt := spec.ResourceType
		if rt == "" {
			rt = model.ResourceTypeBlob
		}
		resource, err = e.buildResource(ctx, spec.FilePath, info.Size(), checksum, rt, userID, spec.CopyToLibrary)
		if err != nil {
			return nil, err
		}
		for k, v := range spec.ResourceMeta {
			resource.Meta[k] = v
		}
	}

	track := &model.Track{
		ID:         uuid.New(),
		UserID:     userID,
		TrackType:  trackType,
		Visibility: visibility,
		Resource:   resource,
		Meta:       spec.Meta,
	}
	if err := e.tracks.CreateTrack(track); err != nil {
		return nil, err
	}
	return e.tracks.GetTrackByID(track.ID)
}
