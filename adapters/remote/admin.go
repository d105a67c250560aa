package remote

import (
	"context"
	"net/url"

	"github.com/artpar/carehub/core/module"
	"github.com/artpar/carehub/core/registry"
)

// AdminClient calls the admin API of a running carehub server.
//
// API Contract (relative to the admin mount point):
//
//	GET    /modules                  -> {"modules": [...], "total": n}
//	GET    /modules/{id}             -> module with state
//	PATCH  /modules/{id}/settings    -> settings
//	GET    /modules/{id}/validate    -> validation report
//	GET    /modules/{id}/backup      -> backup
//	POST   /modules/{id}/restore     -> module with state
//	GET    /stats                    -> stats
type AdminClient struct {
	client *Client
	prefix string
}

// NewAdminClient creates an admin API client. prefix is where the admin API
// is mounted, normally "/admin".
func NewAdminClient(client *Client, prefix string) *AdminClient {
	return &AdminClient{client: client, prefix: prefix}
}

// ModuleInfo is a module as reported by the server.
type ModuleInfo struct {
	module.Descriptor
	State string `json:"state"`
}

// Validation is the dependency report for one module.
type Validation struct {
	Module  string   `json:"module"`
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing"`
	Cycle   bool     `json:"cycle"`
	Errors  []string `json:"errors"`
}

func (a *AdminClient) modulePath(id, suffix string) string {
	return a.prefix + "/modules/" + url.PathEscape(id) + suffix
}

// ListModules returns every registered module.
func (a *AdminClient) ListModules(ctx context.Context) ([]ModuleInfo, error) {
	var resp struct {
		Modules []ModuleInfo `json:"modules"`
	}
	if err := a.client.Request(ctx, "GET", a.prefix+"/modules", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Modules, nil
}

// GetModule returns one module.
func (a *AdminClient) GetModule(ctx context.Context, id string) (ModuleInfo, error) {
	var info ModuleInfo
	err := a.client.Request(ctx, "GET", a.modulePath(id, ""), nil, &info)
	return info, err
}

// UpdateSettings applies a partial settings update.
func (a *AdminClient) UpdateSettings(ctx context.Context, id string, patch module.SettingsPatch) (module.Settings, error) {
	var s module.Settings
	err := a.client.Request(ctx, "PATCH", a.modulePath(id, "/settings"), patch, &s)
	return s, err
}

// Stats returns registry counts.
func (a *AdminClient) Stats(ctx context.Context) (registry.Stats, error) {
	var s registry.Stats
	err := a.client.Request(ctx, "GET", a.prefix+"/stats", nil, &s)
	return s, err
}

// Validate returns a module's dependency report.
func (a *AdminClient) Validate(ctx context.Context, id string) (Validation, error) {
	var v Validation
	err := a.client.Request(ctx, "GET", a.modulePath(id, "/validate"), nil, &v)
	return v, err
}

// Export downloads a module backup.
func (a *AdminClient) Export(ctx context.Context, id string) (registry.Backup, error) {
	var b registry.Backup
	err := a.client.Request(ctx, "GET", a.modulePath(id, "/backup"), nil, &b)
	return b, err
}

// Restore uploads a backup for a module.
func (a *AdminClient) Restore(ctx context.Context, id string, b registry.Backup) (ModuleInfo, error) {
	var info ModuleInfo
	err := a.client.Request(ctx, "POST", a.modulePath(id, "/restore"), b, &info)
	return info, err
}
