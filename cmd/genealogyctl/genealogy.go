package main

import (
	"genealogycore/internal/core"
	"genealogycore/pkg/domain"

	"github.com/spf13/cobra"
)

func (a *app) linkChildCmd() *cobra.Command {
	var relationship string
	cmd := &cobra.Command{
		Use:   "link-child <family-id> <person-id>",
		Short: "Attach a person to a family as a child",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := a.svc.LinkChild(cmd.Context(), domain.FamilyChild{
				FamilyID:         args[0],
				PersonID:         args[1],
				RelationshipType: domain.ChildRelationship(relationship),
			})
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), link)
		},
	}
	cmd.Flags().StringVar(&relationship, "relationship", string(domain.ChildBiological), "biological, adopted, foster, step or unknown")
	return cmd
}

func (a *app) unlinkChildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink-child <family-id> <person-id>",
		Short: "Detach a child from a family",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.UnlinkChild(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), map[string]string{"unlinked": domain.LinkEntityID(args[0], args[1])})
		},
	}
}

func (a *app) pedigreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pedigree <person-id>",
		Short: "Show a person's parents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			edge, err := a.svc.PedigreeEdge(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), edge)
		},
	}
}

func (a *app) ancestorsCmd() *cobra.Command {
	var generations int
	cmd := &cobra.Command{
		Use:   "ancestors <person-id>",
		Short: "List ancestors with Ahnentafel numbers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.svc.Ancestors(cmd.Context(), args[0], generations)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVar(&generations, "generations", 4, "levels above the person, at most 20")
	return cmd
}

func (a *app) citationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "citations <fact-type> <owner-id>",
		Short: "List the citations of one fact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.svc.CitationsForFact(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), out)
		},
	}
}

func (a *app) facetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "facets <person-id>",
		Short: "Show a person with names, attributes, events, media and parent families",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.svc.PersonFacets(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), out)
		},
	}
}

func (a *app) surnamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "surnames [letter]",
		Short: "Show surname initials, or the surnames under one letter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				out any
				err error
			)
			if len(args) == 0 {
				out, err = a.svc.SurnameLetters(cmd.Context())
			} else {
				out, err = a.svc.SurnamesForLetter(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), out)
		},
	}
}

func (a *app) placesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "places [parent]",
		Short: `Show the places below parent ("Yorkshire, England"), or the top level`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := ""
			if len(args) == 1 {
				parent = args[0]
			}
			out, err := a.svc.PlaceHierarchy(cmd.Context(), parent)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), out)
		},
	}
}

func (a *app) mediaCmd() *cobra.Command {
	media := &cobra.Command{
		Use:   "media",
		Short: "Attach and fetch media payloads",
	}

	var (
		version  int
		file     string
		fileType string
		thumb    string
	)
	attach := &cobra.Command{
		Use:   "attach <media-id>",
		Short: "Upload a file and thumbnail for a media record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := core.MediaPayload{FileType: fileType}
			var err error
			if payload.File, err = readOptional(file); err != nil {
				return err
			}
			if payload.Thumbnail, err = readOptional(thumb); err != nil {
				return err
			}
			if payload.File == nil && payload.Thumbnail == nil {
				return domain.Invalid("file", "--file or --thumbnail is required")
			}
			saved, err := a.svc.AttachMediaData(cmd.Context(), args[0], version, payload)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), saved)
		},
	}
	attach.Flags().IntVar(&version, "version", 0, "expected current version")
	attach.Flags().StringVar(&file, "file", "", "path of the media file")
	attach.Flags().StringVar(&fileType, "type", "", "MIME type of the file")
	attach.Flags().StringVar(&thumb, "thumbnail", "", "path of the thumbnail")
	_ = attach.MarkFlagRequired("version")

	var outDir string
	fetch := &cobra.Command{
		Use:   "fetch <media-id>",
		Short: "Show a media record with its payload sizes, optionally writing the payloads to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withData, err := a.svc.GetMediaWithData(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outDir != "" {
				if err := writePayloads(outDir, withData); err != nil {
					return err
				}
			}
			return a.render(cmd.OutOrStdout(), struct {
				domain.Media
				FileBytes      int `json:"file_bytes"`
				ThumbnailBytes int `json:"thumbnail_bytes"`
			}{withData.Media, len(withData.File), len(withData.Thumbnail)})
		},
	}
	fetch.Flags().StringVar(&outDir, "out", "", "directory to write the file and thumbnail to")

	media.AddCommand(attach, fetch)
	return media
}
