// Package datahub is a client for the HiveMQ Data Hub REST API.
//
// It covers the four administrable resources:
//   - Data policies (/api/v1/data-hub/data-validation/policies)
//   - Behavior policies (/api/v1/data-hub/behavior-validation/policies)
//   - Schemas (/api/v1/data-hub/schemas)
//   - Scripts (/api/v1/data-hub/scripts)
//
// Every request passes a client-side rate limiter before it is sent.
// Non-2xx responses are returned as *APIError carrying the status and body;
// transport failures wrap ErrRequestFailed.
//
// Usage:
//
//	svc := datahub.NewService(30 * time.Second)
//	client, err := svc.Client("http://localhost:8888", 1500)
//	if err != nil {
//	    return err
//	}
//	policies, err := client.ListDataPolicies(ctx, datahub.DataPolicyFilter{Topic: "sensors/#"})
package datahub
