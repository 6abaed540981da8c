package storage

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Lease documents (signed contracts, inventory reports) are stored on
// Cloudinary. Configured via CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY,
// CLOUDINARY_API_SECRET and optionally CLOUDINARY_FOLDER.

var documentHTTPClient = &http.Client{Timeout: 30 * time.Second}

// UploadBase64Document pushes a base64-encoded document to Cloudinary and
// returns its secure URL. Data URLs ("data:application/pdf;base64,...") and
// raw base64 payloads are both accepted.
func UploadBase64Document(base64Src, publicID string) (string, error) {
	if base64Src == "" {
		return "", fmt.Errorf("empty document payload")
	}
	if i := strings.Index(base64Src, ","); i != -1 {
		base64Src = base64Src[i+1:]
	}

	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey := os.Getenv("CLOUDINARY_API_KEY")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return "", fmt.Errorf("cloudinary is not configured")
	}

	if folder := os.Getenv("CLOUDINARY_FOLDER"); folder != "" {
		publicID = folder + "/" + publicID
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	signatureBase := fmt.Sprintf("public_id=%s&timestamp=%s%s", publicID, timestamp, apiSecret)
	signature := fmt.Sprintf("%x", sha1.Sum([]byte(signatureBase)))

	form := url.Values{}
	form.Add("file", "data:application/octet-stream;base64,"+base64Src)
	form.Add("api_key", apiKey)
	form.Add("public_id", publicID)
	form.Add("timestamp", timestamp)
	form.Add("signature", signature)

	endpoint := "https://api.cloudinary.com/v1_1/" + cloudName + "/auto/upload"
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := documentHTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload failed: %v", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cloudinary upload returned %d: %s", res.StatusCode, string(body))
	}

	var cloudRes struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &cloudRes); err != nil {
		return "", err
	}
	if cloudRes.Error.Message != "" {
		return "", fmt.Errorf("cloudinary error: %s", cloudRes.Error.Message)
	}

	uploadedURL := cloudRes.SecureURL
	if uploadedURL == "" {
		uploadedURL = cloudRes.URL
	}
	if uploadedURL == "" {
		return "", fmt.Errorf("cloudinary returned no URL")
	}
	return uploadedURL, nil
}

// DeleteDocument removes a previously uploaded document by its Cloudinary URL.
func DeleteDocument(documentURL string) error {
	if !strings.Contains(documentURL, "res.cloudinary.com") {
		return fmt.Errorf("not a cloudinary URL: %s", documentURL)
	}

	parts := strings.Split(documentURL, "/")
	publicID := strings.SplitN(parts[len(parts)-1], ".", 2)[0]
	if folder := os.Getenv("CLOUDINARY_FOLDER"); folder != "" {
		publicID = folder + "/" + publicID
	}

	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey := os.Getenv("CLOUDINARY_API_KEY")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return fmt.Errorf("cloudinary is not configured")
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	signatureBase := fmt.Sprintf("public_id=%s&timestamp=%s%s", publicID, timestamp, apiSecret)
	signature := fmt.Sprintf("%x", sha1.Sum([]byte(signatureBase)))

	form := url.Values{}
	form.Add("public_id", publicID)
	form.Add("api_key", apiKey)
	form.Add("timestamp", timestamp)
	form.Add("signature", signature)

	endpoint := "https://api.cloudinary.com/v1_1/" + cloudName + "/image/destroy"
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := documentHTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("cloudinary deletion returned %d: %s", res.StatusCode, string(body))
	}

	var deleteRes struct {
		Result string `json:"result"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &deleteRes); err != nil {
		return err
	}
	if deleteRes.Error.Message != "" {
		return fmt.Errorf("cloudinary error: %s", deleteRes.Error.Message)
	}
	if deleteRes.Result != "ok" {
		return fmt.Errorf("cloudinary deletion result: %s", deleteRes.Result)
	}
	return nil
}
