package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogKeysAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, e := range Catalog() {
		assert.False(t, seen[e.Key], "duplicate key %s", e.Key)
		seen[e.Key] = true
		assert.NotEmpty(t, e.Description, e.Key)
		assert.NotEmpty(t, e.Category, e.Key)
	}
}

func TestOwnerPermissionsCoverTheCatalog(t *testing.T) {
	owner := OwnerPermissions()
	require.Len(t, owner, len(AllKeys()))
	for _, key := range AllKeys() {
		assert.True(t, owner[key], key)
	}
}

func TestAdminPermissionsWithholdBillingOnly(t *testing.T) {
	admin := AdminPermissions()
	require.Len(t, admin, len(AllKeys()))
	for _, key := range AllKeys() {
		if key == PermBillingManage {
			assert.False(t, admin[key])
			continue
		}
		assert.True(t, admin[key], key)
	}
}

func TestDerivedMapsAreIndependentCopies(t *testing.T) {
	a := OwnerPermissions()
	a[PermLeadsView] = false
	assert.True(t, OwnerPermissions()[PermLeadsView])

	b := AdminPermissions()
	b[PermLeadsView] = false
	assert.True(t, AdminPermissions()[PermLeadsView])
}

func TestKnownKey(t *testing.T) {
	assert.True(t, KnownKey(PermLeadsView))
	assert.True(t, KnownKey(PermBillingManage))
	assert.False(t, KnownKey("leads.fly"))
	assert.False(t, KnownKey(""))
}

func TestCategoriesPartitionTheCatalog(t *testing.T) {
	total := 0
	for _, keys := range Categories() {
		total += len(keys)
	}
	assert.Equal(t, len(AllKeys()), total)
}

func TestSections(t *testing.T) {
	require.NotEmpty(t, Sections())
	all := AllSections()
	for _, s := range Sections() {
		assert.True(t, all[s], s)
		assert.True(t, KnownSection(s), s)
	}
	assert.False(t, KnownSection("warehouse"))
}
