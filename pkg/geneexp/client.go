// Package geneexp fetches gene expression energy volumes from the Allen
// Brain Atlas API and turns them into scene actors.
package geneexp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/brainscene/pkg/blob"
)

// DefaultBaseURL is the public Allen Brain Atlas API.
const DefaultBaseURL = "http://api.brain-map.org"

var (
	// ErrGeneNotFound is returned when the API knows no gene by that acronym
	// or has no experiments for it.
	ErrGeneNotFound = errors.New("gene not found")

	// ErrAPI is returned when the API reports an unsuccessful query.
	ErrAPI = errors.New("allen api error")
)

// Client queries the RMA endpoints and downloads expression grids.
// Downloads are cached in Cache when it is set.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Cache   blob.Store
}

// NewClient returns a client for the public API with the given cache,
// which may be nil.
func NewClient(cache blob.Store) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		Cache:   cache,
	}
}

// rmaResponse is the envelope of every RMA query. Msg is an array of rows
// on success and an error string otherwise.
type rmaResponse struct {
	Success   bool            `json:"success"`
	TotalRows int             `json:"total_rows"`
	Msg       json.RawMessage `json:"msg"`
}

type geneRow struct {
	ID      int    `json:"id"`
	Acronym string `json:"acronym"`
	Name    string `json:"name"`
}

type experimentRow struct {
	ID int `json:"id"`
}

// GeneID returns the API id of the gene with the given acronym.
func (c *Client) GeneID(ctx context.Context, gene string) (int, error) {
	criteria := fmt.Sprintf("model::Gene,rma::criteria,[acronym$eq'%s'],products[abbreviation$eq'Mouse']", gene)
	var rows []geneRow
	if err := c.query(ctx, criteria, &rows); err != nil {
		return 0, fmt.Errorf("gene %s: %w", gene, err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrGeneNotFound, gene)
	}
	return rows[0].ID, nil
}

// Experiments returns the ids of the sagittal in situ hybridization
// experiments for gene.
func (c *Client) Experiments(ctx context.Context, gene string) ([]int, error) {
	criteria := fmt.Sprintf(
		"model::SectionDataSet,rma::criteria,[failed$eq'false'],products[abbreviation$eq'Mouse'],plane_of_section[name$eq'sagittal'],genes[acronym$eq'%s']",
		gene)
	var rows []experimentRow
	if err := c.query(ctx, criteria, &rows); err != nil {
		return nil, fmt.Errorf("experiments for %s: %w", gene, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no experiments for %s", ErrGeneNotFound, gene)
	}
	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

// GeneData downloads the energy grid of an experiment. With useCache a
// previously downloaded archive is read from the cache instead.
func (c *Client) GeneData(ctx context.Context, gene string, expID int, useCache bool) (*Grid, error) {
	key := cacheKey(gene, expID)
	if useCache && c.Cache != nil {
		data, err := blob.ReadAll(ctx, c.Cache, key)
		switch {
		case err == nil:
			log.Printf("geneexp: using cached grid %s", key)
			return ReadArchive(data)
		case !errors.Is(err, blob.ErrNotFound):
			return nil, fmt.Errorf("reading cache %s: %w", key, err)
		}
	}

	u := c.baseURL() + "/grid_data/download/" + strconv.Itoa(expID) + "?include=energy"
	data, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("downloading experiment %d: %w", expID, err)
	}
	g, err := ReadArchive(data)
	if err != nil {
		return nil, fmt.Errorf("experiment %d: %w", expID, err)
	}

	if c.Cache != nil {
		_, err := c.Cache.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
			ContentType: "application/zip",
			Metadata:    map[string]string{"gene": gene, "experiment": strconv.Itoa(expID)},
		})
		if err != nil {
			log.Printf("geneexp: caching %s: %v", key, err)
		}
	}
	return g, nil
}

func cacheKey(gene string, expID int) string {
	return fmt.Sprintf("genes/%s/%d.zip", gene, expID)
}

func (c *Client) baseURL() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

// query runs an RMA criteria query and decodes its rows into dst.
func (c *Client) query(ctx context.Context, criteria string, dst any) error {
	u := c.baseURL() + "/api/v2/data/query.json?criteria=" + url.QueryEscape(criteria)
	body, err := c.get(ctx, u)
	if err != nil {
		return err
	}
	var resp rmaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !resp.Success {
		var msg string
		_ = json.Unmarshal(resp.Msg, &msg)
		return fmt.Errorf("%w: %s", ErrAPI, msg)
	}
	if err := json.Unmarshal(resp.Msg, dst); err != nil {
		return fmt.Errorf("decoding rows: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrAPI, req.URL.Path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
