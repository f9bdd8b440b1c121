package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/cobra"
)

var filterCmd = &cobra.Command{
	Use:   "filter DATE",
	Short: "List stored articles of a past day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{"date": {args[0]}}
		if flagCategory != "" {
			q.Set("category", flagCategory)
		}

		var resp struct {
			Success  bool          `json:"success"`
			Error    string        `json:"error"`
			Date     string        `json:"date"`
			Count    int           `json:"count"`
			Articles []articleView `json:"articles"`
		}
		body, err := getJSON(flagAPIAddr, "/api/articles/filter", q, &resp)
		if err != nil {
			return err
		}
		if flagJSON {
			_, err := cmd.OutOrStdout().Write(body)
			return err
		}
		if !resp.Success {
			return errors.New(resp.Error)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%d articles on %s\n", resp.Count, resp.Date)
		for i, a := range resp.Articles {
			printArticle(w, i+1, resp.Count, a)
		}
		return nil
	},
}

var countsCmd = &cobra.Command{
	Use:   "counts [DATE]",
	Short: "Show per-category article counts for a day",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		if len(args) == 1 {
			q.Set("date", args[0])
		}

		var resp struct {
			Date   string `json:"date"`
			Error  string `json:"error"`
			Counts []struct {
				Category string `json:"category"`
				Count    int    `json:"count"`
			} `json:"counts"`
		}
		body, err := getJSON(flagAPIAddr, "/api/articles/categories", q, &resp)
		if err != nil {
			return err
		}
		if flagJSON {
			_, err := cmd.OutOrStdout().Write(body)
			return err
		}
		if resp.Error != "" {
			return errors.New(resp.Error)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Categories on %s\n", resp.Date)
		for _, c := range resp.Counts {
			fmt.Fprintf(w, "  %-13s %d\n", c.Category, c.Count)
		}
		return nil
	},
}

func init() {
	filterCmd.Flags().StringVar(&flagCategory, "category", "", "only list this category")
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

// getJSON fetches base+path and decodes the body into v. Error statuses are
// decoded too since the API reports failures in the body.
func getJSON(base, path string, q url.Values, v interface{}) ([]byte, error) {
	target := strings.TrimRight(base, "/") + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	resp, err := httpClient.Get(target)
	if err != nil {
		return nil, errors.Annotatef(err, "GET %s", target)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return nil, errors.Annotatef(err, "decoding %s response (status %d)", path, resp.StatusCode)
	}
	return body, nil
}
