package permissions

// Permission catalog for the Meridian platform. The catalog is the closed
// set of valid permission keys; keys outside it are meaningless to the
// management API.
const (
	PermLeadsView   = "leads.view"
	PermLeadsEdit   = "leads.edit"
	PermLeadsDelete = "leads.delete"
	PermLeadsAssign = "leads.assign"

	PermContactsView = "contacts.view"
	PermContactsEdit = "contacts.edit"

	PermOpportunitiesView = "opportunities.view"
	PermOpportunitiesEdit = "opportunities.edit"

	PermCalendarView   = "calendar.view"
	PermCalendarManage = "calendar.manage"

	PermFormsView    = "forms.view"
	PermFormsManage  = "forms.manage"
	PermFormsResults = "forms.results"

	PermBrainView = "brain.view"
	PermBrainEdit = "brain.edit"

	PermMembersView    = "agency.members.view"
	PermMembersManage  = "agency.members.manage"
	PermRolesManage    = "agency.roles.manage"
	PermSettingsManage = "agency.settings.manage"
	PermBillingManage  = "agency.billing.manage"
)

// Catalog categories.
const (
	CategoryCRM            = "CRM"
	CategoryCalendar       = "Calendar"
	CategoryForms          = "Forms"
	CategorySecondBrain    = "Second Brain"
	CategoryAdministration = "Administration"
)

// CatalogEntry describes a single permission key.
type CatalogEntry struct {
	Key         string
	Description string
	Category    string
}

// catalog is the single source of truth. Owner/admin maps and category
// groupings are derived from it so a new key needs exactly one edit here.
var catalog = []CatalogEntry{
	{PermLeadsView, "View leads in the pipeline", CategoryCRM},
	{PermLeadsEdit, "Create and edit leads", CategoryCRM},
	{PermLeadsDelete, "Delete leads", CategoryCRM},
	{PermLeadsAssign, "Assign leads to other members", CategoryCRM},
	{PermContactsView, "View contacts", CategoryCRM},
	{PermContactsEdit, "Create and edit contacts", CategoryCRM},
	{PermOpportunitiesView, "View opportunities", CategoryCRM},
	{PermOpportunitiesEdit, "Create and edit opportunities", CategoryCRM},
	{PermCalendarView, "View the shared calendar", CategoryCalendar},
	{PermCalendarManage, "Create and edit calendar events", CategoryCalendar},
	{PermFormsView, "View forms", CategoryForms},
	{PermFormsManage, "Create and edit forms", CategoryForms},
	{PermFormsResults, "View form submissions", CategoryForms},
	{PermBrainView, "View second brain notes and maps", CategorySecondBrain},
	{PermBrainEdit, "Create and edit second brain content", CategorySecondBrain},
	{PermMembersView, "View agency members", CategoryAdministration},
	{PermMembersManage, "Invite, remove and re-tier members", CategoryAdministration},
	{PermRolesManage, "Create and edit roles", CategoryAdministration},
	{PermSettingsManage, "Manage agency settings", CategoryAdministration},
	{PermBillingManage, "Manage agency billing and subscription", CategoryAdministration},
}

// Catalog returns the full permission catalog.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(catalog))
	copy(out, catalog)
	return out
}

// AllKeys returns every permission key in the catalog.
func AllKeys() []string {
	keys := make([]string, 0, len(catalog))
	for _, e := range catalog {
		keys = append(keys, e.Key)
	}
	return keys
}

// KnownKey reports whether key belongs to the catalog.
func KnownKey(key string) bool {
	for _, e := range catalog {
		if e.Key == key {
			return true
		}
	}
	return false
}

// Categories groups catalog keys by category.
func Categories() map[string][]string {
	grouped := make(map[string][]string)
	for _, e := range catalog {
		grouped[e.Category] = append(grouped[e.Category], e.Key)
	}
	return grouped
}

// OwnerPermissions returns every catalog key granted.
func OwnerPermissions() PermissionSet {
	set := make(PermissionSet, len(catalog))
	for _, e := range catalog {
		set[e.Key] = true
	}
	return set
}

// AdminPermissions returns every catalog key granted except billing
// management, which stays with the owner.
func AdminPermissions() PermissionSet {
	set := OwnerPermissions()
	set[PermBillingManage] = false
	return set
}

// UI sections gated by role section-access maps.
const (
	SectionDashboard     = "dashboard"
	SectionLeads         = "leads"
	SectionContacts      = "contacts"
	SectionOpportunities = "opportunities"
	SectionCalendar      = "calendar"
	SectionForms         = "forms"
	SectionSecondBrain   = "second_brain"
	SectionSettings      = "settings"
)

var sections = []string{
	SectionDashboard,
	SectionLeads,
	SectionContacts,
	SectionOpportunities,
	SectionCalendar,
	SectionForms,
	SectionSecondBrain,
	SectionSettings,
}

// Sections returns the fixed list of UI sections.
func Sections() []string {
	out := make([]string, len(sections))
	copy(out, sections)
	return out
}

// KnownSection reports whether section is one of the fixed UI sections.
func KnownSection(section string) bool {
	for _, s := range sections {
		if s == section {
			return true
		}
	}
	return false
}

// AllSections returns every section granted, used for owner/admin/god-mode.
func AllSections() SectionSet {
	set := make(SectionSet, len(sections))
	for _, s := range sections {
		set[s] = true
	}
	return set
}
