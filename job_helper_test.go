package migbatch

import (
	"context"
	"testing"

	"github.com/bmizerany/assert"
)

func TestJobHelperParameters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	helper := NewJobHelper(repo)

	params, err := helper.ParametersByJob(ctx, "csv_product_import")
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(params.Typed))
	ok, err := helper.SetParametersByJob(ctx, "csv_product_import", NewParameters(map[string]interface{}{"delimiter": ";"}))
	assert.Equal(t, nil, err)
	assert.T(t, !ok)

	_, _ = repo.CreateJobInstance(ctx, "csv_product_import", "import", NewParameters(map[string]interface{}{"delimiter": ","}))
	ok, err = helper.SetParametersByJob(ctx, "csv_product_import", NewParameters(map[string]interface{}{"delimiter": ";"}))
	assert.Equal(t, nil, err)
	assert.T(t, ok)

	params, _ = helper.ParametersByJob(ctx, "csv_product_import")
	v, _ := params.Lookup("delimiter")
	assert.Equal(t, ";", v)

	instance, _ := repo.FindLastJobInstanceByName(ctx, "csv_product_import")
	assert.Equal(t, params.Footprint(), instance.JobKey)
}

func TestJobHelperMapping(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	helper := NewJobHelper(repo)
	_, _ = repo.CreateJobInstance(ctx, "with_mapping", "import", NewParameters(map[string]interface{}{ParamMapping: `{"sku":"code"}`}))
	_, _ = repo.CreateJobInstance(ctx, "without_mapping", "import", NewParameters(map[string]interface{}{"delimiter": ";"}))

	mapping, err := helper.MappingByJob(ctx, "with_mapping")
	assert.Equal(t, nil, err)
	assert.Equal(t, "code", mapping.String("sku"))

	mapping, err = helper.MappingByJob(ctx, "without_mapping")
	assert.Equal(t, nil, err)
	assert.T(t, mapping == nil)

	ok, err := helper.SetMappingByJob(ctx, "without_mapping", map[string]interface{}{"sku": "identifier"})
	assert.Equal(t, nil, err)
	assert.T(t, !ok)

	ok, err = helper.SetMappingByJob(ctx, "with_mapping", map[string]interface{}{"sku": "identifier"})
	assert.Equal(t, nil, err)
	assert.T(t, ok)
	params, _ := helper.ParametersByJob(ctx, "with_mapping")
	raw, _ := params.Lookup(ParamMapping)
	assert.Equal(t, "{\n    \"sku\": \"identifier\"\n}", raw)
}

func TestJobHelperInvalidMapping(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	_, _ = repo.CreateJobInstance(ctx, "broken", "import", NewParameters(map[string]interface{}{ParamMapping: `{"sku":`}))
	_, err := NewJobHelper(repo).MappingByJob(ctx, "broken")
	assert.NotEqual(t, nil, err)
}
