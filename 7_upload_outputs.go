package skilltax

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// objectPutter is the part of the S3 client used for uploads.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var UploadOutputsCmd = &cobra.Command{
	Use:   "upload-outputs",
	Short: "Upload the outputs directory to S3",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := Pipeline.Upload
		if cfg.Bucket == "" {
			return fmt.Errorf("upload.bucket is not set: %w", ErrConfiguration)
		}
		if _, err := os.Stat(Pipeline.OutputDir); os.IsNotExist(err) {
			return fmt.Errorf("%s not found, run the pipeline first", Pipeline.OutputDir)
		}
		client, err := newS3Client(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		n, err := uploadDir(cmd.Context(), client, cfg.Bucket, cfg.Prefix, Pipeline.OutputDir)
		if err != nil {
			return fmt.Errorf("failed to upload outputs: %w", err)
		}
		zap.L().Info("uploaded outputs", zap.Int("files", n), zap.String("bucket", cfg.Bucket), zap.String("prefix", cfg.Prefix))
		return nil
	},
}

// newS3Client uses static credentials from the environment when present and
// the default AWS credential chain otherwise. A custom endpoint switches to
// path-style addressing for S3 compatible stores.
func newS3Client(ctx context.Context, cfg UploadSettings) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if Config.S3AccessKeyID != "" && Config.S3SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(Config.S3AccessKeyID, Config.S3SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// uploadDir puts every regular file under dir at prefix/<relative path>.
func uploadDir(ctx context.Context, client objectPutter, bucket, prefix, dir string) (int, error) {
	prefix = strings.Trim(prefix, "/")
	uploaded := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := path.Join(prefix, filepath.ToSlash(rel))

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		input := &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   f,
		}
		if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
			input.ContentType = aws.String(ct)
		}
		if _, err := client.PutObject(ctx, input); err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
		zap.L().Debug("uploaded file", zap.String("key", key))
		uploaded++
		return nil
	})
	return uploaded, err
}
