package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/vesselinfo/internal/model"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

func keyIs(key string) any {
	return mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Bucket) == "ais" && aws.ToString(in.Key) == key
	})
}

func body(data []byte) *s3.GetObjectOutput {
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}
}

func TestLoad_S3Prefix(t *testing.T) {
	client := new(mockS3)
	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.Prefix) == "2024/"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("2024/AIS_2024_01_02.csv.gz")},
			{Key: aws.String("2024/README.md")},
			{Key: aws.String("2024/AIS_2024_01_01.csv")},
		},
	}, nil)

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write([]byte(extractHeader + "2,2024-01-02T00:00:00,1,1,,,,TWO,,,,,,,,,\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	client.On("GetObject", mock.Anything, keyIs("2024/AIS_2024_01_01.csv")).
		Return(body([]byte(extractHeader+"1,2024-01-01T00:00:00,1,1,,,,ONE,,,,,,,,,\n")), nil)
	client.On("GetObject", mock.Anything, keyIs("2024/AIS_2024_01_02.csv.gz")).
		Return(body(gz.Bytes()), nil)

	s, err := Load(context.Background(), []string{"s3://ais/2024/"}, Options{S3Client: client, Workers: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "ONE", s.FindByMMSI(1)[0].Name())
	assert.Equal(t, "TWO", s.FindByMMSI(2)[0].Name())

	st := s.Stats()
	require.Len(t, st.Sources, 2)
	assert.Equal(t, "s3://ais/2024/AIS_2024_01_01.csv", st.Sources[0].Name)
	client.AssertExpectations(t)
}

func TestLoad_S3Object(t *testing.T) {
	client := new(mockS3)
	client.On("GetObject", mock.Anything, keyIs("day.csv")).
		Return(body([]byte(extractHeader+"1,2024-01-01T00:00:00,95,1,,,,,,,,,,,,,\n")), nil)

	_, err := Load(context.Background(), []string{"s3://ais/day.csv"}, Options{S3Client: client})
	var le *model.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "s3://ais/day.csv", le.Source)
	assert.Equal(t, ColLat, le.Column)
	client.AssertNotCalled(t, "ListObjectsV2", mock.Anything, mock.Anything)
}

func TestLoad_S3GetFails(t *testing.T) {
	client := new(mockS3)
	client.On("GetObject", mock.Anything, keyIs("day.csv")).Return(nil, errors.New("access denied"))

	_, err := Load(context.Background(), []string{"s3://ais/day.csv"}, Options{S3Client: client})
	var le *model.LoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorContains(t, err, "access denied")
}
