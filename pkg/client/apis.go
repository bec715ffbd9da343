package client

import (
	"encoding/json"
	"mime"
	"net/url"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/vetcalc/pkg/calculator"
)

// ListOptions filters ListCalculators. Zero values match everything.
type ListOptions struct {
	Group string
	Query string
	Type  calculator.Type
}

func (c *Client) ListCalculators(opts ListOptions) ([]calculator.Summary, error) {
	q := url.Values{}
	if opts.Group != "" {
		q.Set("group", opts.Group)
	}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if opts.Type != "" {
		q.Set("type", string(opts.Type))
	}
	path := "/calculators"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	ret, err := c.Get(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to list calculators")
	}
	var summaries []calculator.Summary
	if err := json.Unmarshal([]byte(ret), &summaries); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal calculators")
	}
	return summaries, nil
}

func (c *Client) GetCalculator(id string) (*calculator.Calculator, error) {
	ret, err := c.Get("/calculators/" + url.PathEscape(id))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get calculator %s", id)
	}
	return unmarshalCalculator(ret)
}

func (c *Client) AddCalculator(d calculator.Draft) (*calculator.Calculator, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	ret, err := c.Post("/calculators", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to add calculator")
	}
	return unmarshalCalculator(ret)
}

func (c *Client) DeleteCalculator(id string) (string, error) {
	ret, err := c.Delete("/calculators/" + url.PathEscape(id))
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to delete calculator %s", id)
	}
	return unquote(ret), nil
}

// Evaluate runs one calculation in the daemon. inputs maps variable keys to
// the text typed for them.
func (c *Client) Evaluate(id string, inputs map[string]string) (*calculator.Result, error) {
	if inputs == nil {
		inputs = map[string]string{}
	}
	payload, err := json.Marshal(map[string]any{"inputs": inputs})
	if err != nil {
		return nil, err
	}
	ret, err := c.Post("/calculators/"+url.PathEscape(id)+"/evaluate", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to evaluate calculator %s", id)
	}
	var r calculator.Result
	if err := json.Unmarshal([]byte(ret), &r); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal result")
	}
	return &r, nil
}

// Groups returns the sorted group names, only the built-in ones if builtin
// is set.
func (c *Client) Groups(builtin bool) ([]string, error) {
	path := "/groups"
	if builtin {
		path += "?builtin=1"
	}
	ret, err := c.Get(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get groups")
	}
	var groups []string
	if err := json.Unmarshal([]byte(ret), &groups); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal groups")
	}
	return groups, nil
}

// Import sends an export file and returns the number of imported
// calculators.
func (c *Client) Import(data []byte) (int, error) {
	ret, err := c.Post("/import", string(data))
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to import calculators")
	}
	var resp struct {
		Imported int `json:"imported"`
	}
	if err := json.Unmarshal([]byte(ret), &resp); err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to unmarshal import response")
	}
	return resp.Imported, nil
}

// Export returns the export file of the custom set and the filename the
// daemon suggests for it.
func (c *Client) Export() ([]byte, string, error) {
	resp, err := c.Do("GET", "/export", "")
	if err != nil {
		return nil, "", pkgerrors.Wrapf(err, "failed to export calculators")
	}
	filename := calculator.ExportFilename(time.Now())
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return []byte(resp.Body), filename, nil
}

func (c *Client) GetSelection() (*calculator.Calculator, error) {
	ret, err := c.Get("/selection")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get selection")
	}
	return unmarshalCalculator(ret)
}

func (c *Client) Select(id string) (*calculator.Calculator, error) {
	payload, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return nil, err
	}
	ret, err := c.Put("/selection", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to select calculator %s", id)
	}
	return unmarshalCalculator(ret)
}

func (c *Client) ClearSelection() error {
	_, err := c.Delete("/selection")
	return pkgerrors.Wrapf(err, "failed to clear selection")
}

// BackupStatus describes the scheduled backups.
type BackupStatus struct {
	Schedule string    `json:"schedule"`
	Dir      string    `json:"dir"`
	NextRun  time.Time `json:"nextRun"`
	Running  bool      `json:"running"`
}

func (c *Client) GetBackup() (*BackupStatus, error) {
	ret, err := c.Get("/backup")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get backup status")
	}
	return unmarshalBackup(ret)
}

func (c *Client) SkipBackup() (*BackupStatus, error) {
	ret, err := c.Post("/backup/skip", "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to skip backup")
	}
	return unmarshalBackup(ret)
}

func (c *Client) PostponeBackup(d time.Duration) (*BackupStatus, error) {
	body, err := json.Marshal(map[string]string{"duration": d.String()})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to marshal postpone request")
	}
	ret, err := c.Post("/backup/postpone", string(body))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to postpone backup")
	}
	return unmarshalBackup(ret)
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	return unquote(ret), nil
}

func unmarshalCalculator(ret string) (*calculator.Calculator, error) {
	var calc calculator.Calculator
	if err := json.Unmarshal([]byte(ret), &calc); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal calculator")
	}
	return &calc, nil
}

func unmarshalBackup(ret string) (*BackupStatus, error) {
	var st BackupStatus
	if err := json.Unmarshal([]byte(ret), &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal backup status")
	}
	return &st, nil
}

// unquote decodes a JSON string answer, falling back to the raw text.
func unquote(ret string) string {
	var s string
	if err := json.Unmarshal([]byte(ret), &s); err != nil {
		return ret
	}
	return s
}
