package aws

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	values map[string]string
	calls  int
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.values[sdkaws.ToString(in.SecretId)]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: sdkaws.String(v)}, nil
}

func TestSecretsClient_CachesValues(t *testing.T) {
	api := &fakeSecrets{values: map[string]string{"console/JWT_SECRET": "s3cret"}}
	sm := NewSecretsClientWithAPI(api)

	for i := 0; i < 2; i++ {
		v, err := sm.GetSecret(context.Background(), "console/JWT_SECRET")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)
	}
	assert.Equal(t, 1, api.calls)

	_, err := sm.GetSecret(context.Background(), "missing")
	assert.ErrorContains(t, err, "missing")
}

func TestSecretsClient_Fields(t *testing.T) {
	api := &fakeSecrets{values: map[string]string{
		"console/config": `{"JWT_SECRET":"a","MONGO_DB_URL":"mongodb://db:27017"}`,
		"plain":          "not json",
	}}
	sm := NewSecretsClientWithAPI(api)

	fields, err := sm.GetSecretFields(context.Background(), "console/config")
	require.NoError(t, err)
	assert.Equal(t, "a", fields["JWT_SECRET"])
	assert.Equal(t, "mongodb://db:27017", fields["MONGO_DB_URL"])

	_, err = sm.GetSecretFields(context.Background(), "plain")
	assert.Error(t, err)
}
