package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

func GetInfo(node string) (*Info, error) {
	var info Info
	err := callTelemetryRPC(node, "getinfo", &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func GetMetric(node string) (map[string]uint32, error) {
	var metric map[string]uint32
	err := callTelemetryRPC(node, "getmetric", &metric)
	return metric, err
}

func callTelemetryRPC(node, method string, out any) error {
	client := &http.Client{Timeout: 20 * time.Second}

	body, err := json.Marshal(Call{Method: method, Params: []any{}})
	if err != nil {
		panic(err)
	}
	req, err := http.NewRequest("POST", node, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Close = true
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return fmt.Errorf("rpc.%s(%s) => %d %v", method, node, resp.StatusCode, err)
	}
	if result.Error != "" || resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc.%s(%s) => %d %s", method, node, resp.StatusCode, result.Error)
	}
	if len(result.Data) == 0 {
		return fmt.Errorf("rpc.%s(%s) => empty response", method, node)
	}
	return json.Unmarshal(result.Data, out)
}
