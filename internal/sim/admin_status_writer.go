package sim

// AdminStatusWriter allows writers to show whether the admin API is up.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}
