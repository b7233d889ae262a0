package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/Aashish23092/runlog-ocr/service"
	"github.com/spf13/cobra"
)

type submitFlags struct {
	user   string
	image  string
	date   string
	mode   string
	policy string
	choice string
}

func submitCommand(a *app) *cobra.Command {
	var f submitFlags

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Extract a distance from an image and write it to the sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			req, err := f.request()
			if err != nil {
				return err
			}

			store, err := a.store(ctx)
			if err != nil {
				return err
			}
			svc, err := a.runLogService(ctx, store)
			if err != nil {
				return err
			}
			sess, err := svc.StartSession(ctx, f.user)
			if err != nil {
				return err
			}

			sub, err := svc.Submit(ctx, sess.ID, req)
			if sub != nil && sub.State == service.StateAwaitingSelection && f.choice != "" {
				sub, err = svc.Select(ctx, sess.ID, sub.ID, f.choice)
			}
			if sub == nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(sub.Response()); encErr != nil {
				return encErr
			}
			if err == nil && sub.State == service.StateAwaitingSelection {
				return errors.New("several candidates found, rerun with --select <value>")
			}
			return err
		},
	}
	cmd.Flags().StringVar(&f.user, "user", "", "user id as written in the roster column")
	cmd.Flags().StringVar(&f.image, "image", "", "running log image (jpg, png or pdf)")
	cmd.Flags().StringVar(&f.date, "date", "", "date to record, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "extraction mode: UNIT_SUFFIXED or ANY_NUMBER")
	cmd.Flags().StringVar(&f.policy, "policy", "", "selection policy: AUTO_SINGLE or PROMPT_USER")
	cmd.Flags().StringVar(&f.choice, "select", "", "candidate to use when several are found")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func (f submitFlags) request() (service.SubmitRequest, error) {
	var req service.SubmitRequest
	var err error

	if req.ContentType, err = dto.ContentTypeFor(f.image); err != nil {
		return req, err
	}
	if req.Image, err = os.ReadFile(f.image); err != nil {
		return req, fmt.Errorf("failed to read image: %w", err)
	}
	if f.mode != "" {
		if req.Mode, err = dto.ParseExtractionMode(f.mode); err != nil {
			return req, err
		}
	}
	if f.policy != "" {
		if req.Policy, err = dto.ParseSelectionPolicy(f.policy); err != nil {
			return req, err
		}
	}
	if f.date != "" {
		date, err := dto.ParseDate(f.date)
		if err != nil {
			return req, err
		}
		req.Date = &date
	}
	return req, nil
}
