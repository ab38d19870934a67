// Package reliability backs up the trading database to S3-compatible
// object storage and rotates old archives on a cron schedule (§9/§11
// supplement). Grounded on r2_backup_service.go's archive-then-upload
// shape, re-pointed at the single trading sqlite file this engine owns
// instead of the teacher's multi-database set.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// S3Config points the backup job at an S3-compatible bucket (AWS S3,
// Cloudflare R2, or anything else speaking the same API via a custom
// endpoint).
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// S3Client wraps the upload/list/delete operations the backup job needs.
type S3Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	log      zerolog.Logger
}

// NewS3Client builds an S3Client from static credentials and an optional
// custom endpoint (set for R2 or any non-AWS S3-compatible target).
func NewS3Client(ctx context.Context, cfg S3Config, log zerolog.Logger) (*S3Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Client{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		log:      log.With().Str("component", "s3_client").Logger(),
	}, nil
}

// Upload puts body at key in the configured bucket.
func (c *S3Client) Upload(ctx context.Context, key string, body io.Reader) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// objectSummary is the subset of s3.Object fields List needs to expose.
type objectSummary struct {
	Key  string
	Size int64
}

// List returns every object whose key starts with prefix.
func (c *S3Client) List(ctx context.Context, prefix string) ([]objectSummary, error) {
	out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("listing objects with prefix %s: %w", prefix, err)
	}

	summaries := make([]objectSummary, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		size := int64(0)
		if obj.Size != nil {
			size = *obj.Size
		}
		summaries = append(summaries, objectSummary{Key: *obj.Key, Size: size})
	}
	return summaries, nil
}

// Delete removes key from the bucket.
func (c *S3Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// checkpointer is satisfied by store.Store; kept as an interface so backup
// tests don't need a real sqlite file with a migrated schema.
type checkpointer interface {
	Path() string
	Checkpoint() error
}

// BackupInfo describes one archive already stored in the bucket.
type BackupInfo struct {
	Key       string
	Timestamp time.Time
	SizeBytes int64
	AgeHours  int64
}

// backupMetadata is written alongside the sqlite copy inside each archive.
type backupMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
}

const archivePrefix = "spicetrader-backup-"
const archiveTimestampLayout = "2006-01-02-150405"
const minBackupsToKeep = 3

// objectStore is the subset of S3Client's behavior BackupJob depends on;
// tests substitute a fake to run without network access.
type objectStore interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	List(ctx context.Context, prefix string) ([]objectSummary, error)
	Delete(ctx context.Context, key string) error
}

// BackupJob periodically checkpoints, archives, and uploads the trading
// database, and rotates old archives out of the bucket.
type BackupJob struct {
	s3       objectStore
	store    checkpointer
	stageDir string
	cron     *cron.Cron
	log      zerolog.Logger
}

// NewBackupJob builds a BackupJob; stageDir is a scratch directory used to
// build each archive before upload (removed after every run).
func NewBackupJob(s3Client objectStore, store checkpointer, stageDir string, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		s3:       s3Client,
		store:    store,
		stageDir: stageDir,
		cron:     cron.New(cron.WithSeconds()),
		log:      log.With().Str("component", "backup_job").Logger(),
	}
}

// Run schedules daily backup-and-rotate at 2 AM, grounded on the teacher's
// own daily maintenance window, and starts the cron scheduler.
func (j *BackupJob) Run(ctx context.Context, retentionDays int) error {
	_, err := j.cron.AddFunc("0 0 2 * * *", func() {
		if err := j.CreateAndUpload(ctx); err != nil {
			j.log.Error().Err(err).Msg("scheduled backup failed")
			return
		}
		if err := j.RotateOldBackups(ctx, retentionDays); err != nil {
			j.log.Error().Err(err).Msg("scheduled rotation failed")
		}
	})
	if err != nil {
		return fmt.Errorf("registering backup cron job: %w", err)
	}
	j.cron.Start()
	j.log.Info().Msg("backup job scheduled")
	return nil
}

// Stop drains any in-flight run and stops the scheduler.
func (j *BackupJob) Stop() {
	<-j.cron.Stop().Done()
}

// CreateAndUpload checkpoints the live database, archives a consistent
// copy with a checksum-bearing metadata file, and uploads it.
func (j *BackupJob) CreateAndUpload(ctx context.Context) error {
	j.log.Info().Msg("starting backup")
	start := time.Now()

	if err := j.store.Checkpoint(); err != nil {
		return fmt.Errorf("checkpointing before backup: %w", err)
	}

	if err := os.MkdirAll(j.stageDir, 0o755); err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(j.stageDir)

	dbCopyPath := filepath.Join(j.stageDir, "trading.db")
	if err := copyFile(j.store.Path(), dbCopyPath); err != nil {
		return fmt.Errorf("copying database: %w", err)
	}

	info, err := os.Stat(dbCopyPath)
	if err != nil {
		return fmt.Errorf("stat-ing database copy: %w", err)
	}
	checksum, err := checksumFile(dbCopyPath)
	if err != nil {
		return fmt.Errorf("checksumming database copy: %w", err)
	}

	metadataPath := filepath.Join(j.stageDir, "backup-metadata.json")
	meta := backupMetadata{Timestamp: time.Now().UTC(), Database: "trading.db", SizeBytes: info.Size(), Checksum: checksum}
	if err := writeMetadata(metadataPath, meta); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	archiveName := fmt.Sprintf("%s%s.tar.gz", archivePrefix, time.Now().Format(archiveTimestampLayout))
	archivePath := filepath.Join(j.stageDir, archiveName)
	if err := createArchive(archivePath, []string{dbCopyPath, metadataPath}, []string{"trading.db", "backup-metadata.json"}); err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer archiveFile.Close()

	if err := j.s3.Upload(ctx, archiveName, archiveFile); err != nil {
		return fmt.Errorf("uploading archive: %w", err)
	}

	j.log.Info().Str("archive", archiveName).Dur("duration_ms", time.Since(start)).Msg("backup completed")
	return nil
}

// ListBackups returns every archive in the bucket, newest first.
func (j *BackupJob) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := j.s3.List(ctx, archivePrefix)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, archivePrefix) || !strings.HasSuffix(obj.Key, ".tar.gz") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(obj.Key, archivePrefix), ".tar.gz")
		ts, err := time.Parse(archiveTimestampLayout, stamp)
		if err != nil {
			j.log.Warn().Str("key", obj.Key).Msg("failed to parse backup timestamp")
			continue
		}
		backups = append(backups, BackupInfo{
			Key:       obj.Key,
			Timestamp: ts,
			SizeBytes: obj.Size,
			AgeHours:  int64(now.Sub(ts).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].Timestamp.After(backups[j].Timestamp) })
	return backups, nil
}

// RotateOldBackups deletes archives older than retentionDays, always
// keeping the newest minBackupsToKeep regardless of age. retentionDays=0
// keeps everything beyond the minimum.
func (j *BackupJob) RotateOldBackups(ctx context.Context, retentionDays int) error {
	backups, err := j.ListBackups(ctx)
	if err != nil {
		return fmt.Errorf("listing backups for rotation: %w", err)
	}
	if len(backups) <= minBackupsToKeep {
		return nil
	}

	var cutoff time.Time
	if retentionDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -retentionDays)
	}

	deleted := 0
	for i, b := range backups {
		if i < minBackupsToKeep || retentionDays == 0 {
			continue
		}
		if b.Timestamp.Before(cutoff) {
			if err := j.s3.Delete(ctx, b.Key); err != nil {
				j.log.Error().Err(err).Str("key", b.Key).Msg("failed to delete old backup")
				continue
			}
			deleted++
		}
	}
	j.log.Info().Int("deleted", deleted).Int("remaining", len(backups)-deleted).Msg("backup rotation completed")
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, meta backupMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func createArchive(archivePath string, sourcePaths, namesInArchive []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	for i, srcPath := range sourcePaths {
		if err := addFileToArchive(tarWriter, srcPath, namesInArchive[i]); err != nil {
			return fmt.Errorf("adding %s to archive: %w", namesInArchive[i], err)
		}
	}
	return nil
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tarWriter, file)
	return err
}
