package skilltax

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	objects      map[string]string
	contentTypes map[string]string
	fail         bool
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.fail {
		return nil, errors.New("access denied")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.objects[key] = string(data)
	f.contentTypes[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestUploadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeJSON(dir, classWordsPath, map[int][]TermScore{0: {{Term: "bake", Score: 1}}}))
	require.NoError(t, writeOutput(dir, treeMarkdownPath, []byte("# tree\n")))

	fake := &fakePutter{objects: map[string]string{}, contentTypes: map[string]string{}}
	n, err := uploadDir(context.Background(), fake, "bucket", "/skills-taxonomy/", dir)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "# tree\n", fake.objects["skills-taxonomy/tree/tree.md"])
	require.Contains(t, fake.objects["skills-taxonomy/most_informative_words/class.json"], `"bake"`)
	require.Equal(t, "application/json", fake.contentTypes["skills-taxonomy/most_informative_words/class.json"])
}

func TestUploadDirReportsFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeOutput(dir, treeMarkdownPath, []byte("# tree\n")))

	_, err := uploadDir(context.Background(), &fakePutter{fail: true}, "bucket", "", dir)
	require.ErrorContains(t, err, "failed to upload tree/tree.md")
}
